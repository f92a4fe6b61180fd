package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{"STORE_DRIVER": "memory"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, 2*time.Second, cfg.LockWaitTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestFromViper_PostgresRequiresURL(t *testing.T) {
	_, err := fromViper(newTestViper(nil))
	assert.ErrorContains(t, err, "PGSQL_URL")

	cfg, err := fromViper(newTestViper(map[string]any{"PGSQL_URL": "postgres://localhost/ledger"}))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
}

func TestFromViper_RejectsUnknownDriver(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{"STORE_DRIVER": "mongo"}))
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")
}

func TestFromViper_ProductionNeedsSecret(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{"STORE_DRIVER": "memory", "IS_PRODUCTION": true}))
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestFromViper_SplitsOrigins(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{
		"STORE_DRIVER":         "sqlite",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,,",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
