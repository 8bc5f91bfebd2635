package api

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
)

const (
	actorKey     = "actor"
	requestIDKey = "request_id"

	headerRequestID   = "X-Request-ID"
	headerIdempotency = "Idempotency-Key"
	headerReplayed    = "Idempotency-Replayed"
)

// Authenticator resolves a bearer token to the calling actor.
type Authenticator interface {
	Parse(token string) (domain.Actor, error)
}

// IdempotencyStore keeps responses of completed writes keyed by the client's Idempotency-Key.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Load(ctx context.Context, key string) (*cache.StoredResponse, error)
	Save(ctx context.Context, key string, resp cache.StoredResponse) error
	Forget(ctx context.Context, key string) error
}

// RequestLogger tags each request with an id and logs it once it completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Auth requires a valid bearer token and stores the actor in the context.
func Auth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		actor, err := authenticator.Parse(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "UNAUTHORIZED", "message": message}})
}

func actorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// limiterIdleTTL is how long a caller's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per caller. Idle buckets are swept on access.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*callerLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*callerLimiter),
		limit:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:     burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, entry := range l.limiters {
			if now.Sub(entry.lastSeen) >= l.idleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &callerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware limits requests per authenticated user, falling back to the client IP.
func (l *RateLimiter) Middleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor, ok := actorFrom(c); ok {
			key = actor.UserID.String()
		}
		if !l.limiter(key).Allow() {
			log.Warn("rate limit exceeded", zap.String("caller", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{"kind": "RATE_LIMITED", "message": "rate limit exceeded, try again later"}})
			return
		}
		c.Next()
	}
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyKey scopes a client key to the caller, method and concrete path,
// so one key reused across endpoints never replays another endpoint's response.
func idempotencyKey(c *gin.Context, clientKey string) string {
	scope := c.Request.Method + " " + c.Request.URL.Path
	if actor, ok := actorFrom(c); ok {
		scope = actor.UserID.String() + ":" + scope
	}
	return scope + ":" + clientKey
}

// Idempotency replays the stored response for a repeated Idempotency-Key. Only
// successful responses are kept; anything else releases the key for a retry.
// Store errors degrade to handling the request without deduplication.
func Idempotency(store IdempotencyStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(headerIdempotency))
		if clientKey == "" {
			c.Next()
			return
		}
		key := idempotencyKey(c, clientKey)

		ctx := c.Request.Context()
		reserved, err := store.Reserve(ctx, key)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			stored, err := store.Load(ctx, key)
			if err != nil {
				log.Warn("idempotency lookup failed", zap.Error(err))
			}
			if stored == nil {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": gin.H{"kind": "INVALID_STATE", "message": "a request with this Idempotency-Key is still in progress"}})
				return
			}
			c.Header(headerReplayed, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = recorder
		c.Next()

		// the request context may already be cancelled
		saveCtx := context.WithoutCancel(ctx)
		status := recorder.Status()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			if err := store.Save(saveCtx, key, cache.StoredResponse{Status: status, Body: recorder.body.Bytes()}); err != nil {
				log.Warn("failed to store idempotent response", zap.Error(err))
			}
			return
		}
		if err := store.Forget(saveCtx, key); err != nil {
			log.Warn("failed to release idempotency key", zap.Error(err))
		}
	}
}
