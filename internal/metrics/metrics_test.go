package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	Register()
	ObserveHTTPRequest(http.MethodGet, "/api/v1/flights/search", http.StatusOK, 10*time.Millisecond)
	IncBookingCreated()
	IncBookingFailure("SEAT_CONFLICT")
	AddBookingsCompleted(-3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{code="200",method="GET",route="/api/v1/flights/search"}`)
	assert.Contains(t, body, "bookings_created_total 1")
	assert.Contains(t, body, `booking_failures_total{kind="SEAT_CONFLICT"} 1`)
	assert.Contains(t, body, "bookings_completed_total 0")
}
