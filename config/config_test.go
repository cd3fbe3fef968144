package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cleftcare-api", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "cleftcare:visits", cfg.Redis.Channel)
	assert.False(t, cfg.Extraction.Enabled)
	assert.Equal(t, "Visits", cfg.Export.SheetName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EXTRACTION_ENABLED", "true")
	t.Setenv("EXTRACTION_API_KEYS", "key-a, key-b,,")
	t.Setenv("EXTRACTION_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Extraction.APIKeys)
	assert.Equal(t, 5*time.Second, cfg.Extraction.Timeout)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("REDIS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET is required",
		},
		{
			name: "short secret in production",
			env: map[string]string{
				"JWT_SECRET":  "short",
				"APP_ENV":     "production",
				"DB_PASSWORD": "pw",
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "db password outside development",
			env: map[string]string{
				"JWT_SECRET": "test-secret",
				"APP_ENV":    "staging",
			},
			wantErr: "DB_PASSWORD is required",
		},
		{
			name: "extraction without keys",
			env: map[string]string{
				"JWT_SECRET":         "test-secret",
				"EXTRACTION_ENABLED": "true",
			},
			wantErr: "EXTRACTION_API_KEYS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
