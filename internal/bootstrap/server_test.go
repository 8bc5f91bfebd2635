package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/flightbooking/config"
)

func TestDialTarget(t *testing.T) {
	assert.Equal(t, "localhost:9090", dialTarget(":9090"))
	assert.Equal(t, "10.0.0.5:9090", dialTarget("10.0.0.5:9090"))
	assert.Equal(t, "grpc", dialTarget("grpc"))
}

func TestNewServers_RoutesAPI(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: ":0"}, GRPC: config.GRPCConfig{Address: ":0"}}

	s, err := newServers(cfg, api)
	require.NoError(t, err)
	defer s.conn.Close()

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/flights/search", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
