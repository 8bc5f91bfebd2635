package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: secret\nstorage:\n  driver: memory\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "EUR", cfg.Booking.Currency)
	assert.Equal(t, int64(1000), cfg.Booking.Fees.BookingFee)
	assert.Equal(t, 120, cfg.Search.MinLayoverMinutes)
	assert.Equal(t, 720, cfg.Search.MaxLayoverMinutes)
	assert.Equal(t, 31, cfg.Search.MaxRangeDays)
	assert.Equal(t, 10, cfg.Booking.ReferenceAttempts)
	assert.False(t, cfg.Booking.HardDeleteOnCancel)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	path := writeConfig(t, "storage:\n  driver: memory\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "storage:\n  driver: memory\n"},
		{name: "unknown driver", body: "auth:\n  jwt_secret: s\nstorage:\n  driver: mongo\n"},
		{name: "stripe without key", body: "auth:\n  jwt_secret: s\npayment:\n  provider: stripe\n"},
		{name: "bad timezone", body: "auth:\n  jwt_secret: s\nsearch:\n  timezone: Mars/Olympus\n"},
		{name: "layover window", body: "auth:\n  jwt_secret: s\nsearch:\n  min_layover_minutes: 800\n  max_layover_minutes: 100\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
