package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 1000.0, cfg.Aggregation.DefaultRadiusMeters)
	assert.Equal(t, 5000.0, cfg.Aggregation.MaxRadiusMeters)
	assert.Equal(t, AuthDev, cfg.Auth.Mode)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vapi.yaml")
	yamlDoc := `
server:
  port: ":9090"
  read_timeout: 3s
store:
  driver: sqlite
  dsn: /tmp/vapi.db
aggregation:
  max_radius_meters: 2500
auth:
  mode: jwt
  jwt_secret: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("VAPI_PORT", "7070")
	t.Setenv("VAPI_JWT_SECRET", "from-env")
	t.Setenv("VAPI_LOG_DEVELOPMENT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout, "untouched defaults survive")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 2500.0, cfg.Aggregation.MaxRadiusMeters)
	assert.Equal(t, 1000.0, cfg.Aggregation.DefaultRadiusMeters)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Log.Development)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "vapi.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "vapi.db", cfg.Store.DSN)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "vapi/areas", cfg.Realtime.IoTTopicPrefix)
	assert.Equal(t, 5000.0, cfg.Aggregation.MaxRadiusMeters)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadBool(t *testing.T) {
	t.Setenv("VAPI_LOG_DEVELOPMENT", "sometimes")
	_, err := Load("")
	assert.ErrorContains(t, err, "VAPI_LOG_DEVELOPMENT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "unknown store.driver"},
		{"sqlite without dsn", func(c *Config) { c.Store.Driver = DriverSQLite }, "store.dsn is required"},
		{"unknown backend", func(c *Config) { c.Reports.Backend = "s3" }, "unknown reports.backend"},
		{"dynamo without table", func(c *Config) {
			c.Reports.Backend = BackendDynamo
			c.Reports.DynamoTable = ""
		}, "dynamo_table"},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = AuthJWT }, "jwt_secret"},
		{"unknown auth", func(c *Config) { c.Auth.Mode = "oauth" }, "unknown auth.mode"},
		{"zero radius", func(c *Config) { c.Aggregation.DefaultRadiusMeters = 0 }, "must be positive"},
		{"default above max", func(c *Config) { c.Aggregation.DefaultRadiusMeters = 6000 }, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
