package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"

	idempotencyProcessing = "processing"
)

type RedisCache struct {
	client         *redis.Client
	departuresTTL  time.Duration
	idempotencyTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, departuresTTL, idempotencyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		departuresTTL:  departuresTTL,
		idempotencyTTL: idempotencyTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// GetDepartures returns nil, nil on a miss.
func (c *RedisCache) GetDepartures(ctx context.Context, q repository.ScheduleQuery) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, departuresKey(q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncCacheMiss("departures")
			return nil, nil
		}
		metrics.IncRedisError(opGet)
		return nil, err
	}

	flights := make([]domain.Flight, 0)
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	metrics.IncCacheHit("departures")
	return flights, nil
}

func (c *RedisCache) SetDepartures(ctx context.Context, q repository.ScheduleQuery, flights []domain.Flight) error {
	if flights == nil {
		flights = []domain.Flight{}
	}
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, departuresKey(q), payload, c.departuresTTL).Err(); err != nil {
		metrics.IncRedisError(opSet)
		return err
	}
	return nil
}

// StoredResponse is a completed response replayed for a repeated Idempotency-Key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Reserve claims key for one in-flight request. It reports false when the key is
// already being processed or has a stored response.
func (c *RedisCache) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, idempotencyKey(key), idempotencyProcessing, c.idempotencyTTL).Result()
	if err != nil {
		metrics.IncRedisError(opSet)
		return false, err
	}
	return ok, nil
}

// Load returns the stored response for key, or nil while it is still processing or unknown.
func (c *RedisCache) Load(ctx context.Context, key string) (*StoredResponse, error) {
	data, err := c.client.Get(ctx, idempotencyKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		metrics.IncRedisError(opGet)
		return nil, err
	}
	if string(data) == idempotencyProcessing {
		return nil, nil
	}

	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RedisCache) Save(ctx context.Context, key string, resp StoredResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, idempotencyKey(key), payload, c.idempotencyTTL).Err(); err != nil {
		metrics.IncRedisError(opSet)
		return err
	}
	return nil
}

// Forget drops a reservation so a failed request can be retried with the same key.
func (c *RedisCache) Forget(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		metrics.IncRedisError(opDelete)
		return err
	}
	return nil
}

func departuresKey(q repository.ScheduleQuery) string {
	dest := q.Destination
	if dest == "" {
		dest = "*"
	}
	return fmt.Sprintf("cache:departures:%s:%s:%d:%d", q.Origin, dest, q.From.Unix(), q.To.Unix())
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}
