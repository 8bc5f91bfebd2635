package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
)

func testRouter(t *testing.T) (http.Handler, *MockBookingUseCase, *MockWalletUseCase, string) {
	t.Helper()
	cfg := &config.Config{
		Booking:   config.BookingConfig{Currency: "EUR"},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 600, Burst: 100},
	}
	bookings := &MockBookingUseCase{}
	wallets := &MockWalletUseCase{}
	authService := testAuthService()

	router := NewRouter(cfg, RouterDeps{
		Flights:       &MockFlightUseCase{},
		Bookings:      bookings,
		Wallets:       wallets,
		Authenticator: authService,
		Idempotency:   newMemoryIdempotency(),
		Log:           zap.NewNop(),
	})

	token, err := authService.Issue(testActor().UserID, domain.RoleUser, time.Hour)
	require.NoError(t, err)
	return router, bookings, wallets, token
}

func TestRouter_RequiresAuth(t *testing.T) {
	router, _, _, _ := testRouter(t)

	for _, target := range []string{"/api/v1/bookings", "/api/v1/wallet"} {
		req := httptest.NewRequest("GET", target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestRouter_PublicReferenceLookup(t *testing.T) {
	router, bookings, _, _ := testRouter(t)

	bookings.On("GetByReference", mock.Anything, "AB12CD", "ada@example.com").
		Return(&domain.Booking{ID: uuid.New(), Reference: "AB12CD"}, nil)

	req := httptest.NewRequest("GET", "/api/v1/bookings/reference/AB12CD?email=ada@example.com", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	bookings.AssertExpectations(t)
}

func TestRouter_AuthenticatedBalance(t *testing.T) {
	router, _, wallets, token := testRouter(t)

	wallets.On("Balance", mock.Anything, testActor()).Return(int64(1200), nil)

	req := httptest.NewRequest("GET", "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":1200`)
}

func TestRouter_IdempotentCreate(t *testing.T) {
	router, bookings, _, token := testRouter(t)

	bookings.On("CreateBooking", mock.Anything, mock.Anything).
		Return(&domain.Booking{ID: uuid.New(), Reference: "AB12CD", Status: domain.BookingStatusConfirmed}, nil).Once()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(`{"flight_id":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(headerIdempotency, "create-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	bookings.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestRouter_Metrics(t *testing.T) {
	router, _, _, _ := testRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/wallet", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{code="401",method="GET",route="/api/v1/wallet"}`)
}
