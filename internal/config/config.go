// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Configuration Management:
// Go projects typically manage configuration in one of these ways:
//  1. Struct literals with defaults
//  2. Environment variables via os.Getenv() or a .env file ("github.com/joho/godotenv")
//  3. Config files (YAML/TOML) via "gopkg.in/yaml.v3"
//  4. Command-line flags via the standard "flag" package or cobra
//
// This package layers the first three: NewDefaultConfig supplies defaults, an
// optional YAML file overrides them, and VAPI_* environment variables (which
// may come from .env) override both. Typed structs (not raw strings/maps)
// give you compile-time safety and IDE autocompletion.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration container. Grouping related settings
// into sub-structs keeps the config organized as the application grows.
//
// Go Learning Note — Struct Composition:
// Go doesn't have classes or inheritance. Instead, you compose structs by
// embedding or nesting them. Here Config "has a" ServerConfig, StoreConfig,
// etc. Go prefers this composition to inheritance.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Reports     ReportsConfig     `yaml:"reports"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Auth        AuthConfig        `yaml:"auth"`
	Realtime    RealtimeConfig    `yaml:"realtime"`
	AWS         AWSConfig         `yaml:"aws"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
//
// Go Learning Note — time.Duration:
// Go uses time.Duration (an int64 of nanoseconds) instead of raw integers for
// timeouts and intervals. yaml.v3 decodes strings such as "10s" or "1m30s"
// straight into a time.Duration field.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects where sessions, confirmations and subscriptions live,
// and by default reports too.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// SweepInterval is how often expired reports are deleted.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// BackendDynamo stores reports in DynamoDB instead of the main store.
const BackendDynamo = "dynamo"

type ReportsConfig struct {
	// Backend is empty to keep reports in the main store, or "dynamo".
	Backend     string `yaml:"backend"`
	DynamoTable string `yaml:"dynamo_table"`
}

// AggregationConfig bounds nearby searches. The 3x3 block of precision-6
// cells reaches only a couple of kilometers past the center cell, so larger
// radii are clamped to MaxRadiusMeters.
type AggregationConfig struct {
	DefaultRadiusMeters float64       `yaml:"default_radius_meters"`
	MaxRadiusMeters     float64       `yaml:"max_radius_meters"`
	QueryTimeout        time.Duration `yaml:"query_timeout"`
}

// Auth modes.
const (
	AuthNone = "none"
	AuthDev  = "dev"
	AuthJWT  = "jwt"
)

type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
}

// RealtimeConfig controls the WebSocket hub and the optional AWS IoT
// publisher. IoT publishing is off while IoTEndpoint is empty.
type RealtimeConfig struct {
	IoTEndpoint    string        `yaml:"iot_endpoint"`
	IoTTopicPrefix string        `yaml:"iot_topic_prefix"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// NewDefaultConfig returns a Config populated with sensible defaults.
//
// Go Learning Note — Constructor Functions:
// Go has no constructors. By convention, New<Type>() functions serve the same
// purpose. They return a pointer (*Config) so the caller gets a reference to
// shared, mutable state. Returning a value type would copy the struct on every
// assignment, which is fine for small immutable data but wasteful for large
// config objects that get passed around.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver:        DriverMemory,
			SweepInterval: time.Minute,
		},
		Reports: ReportsConfig{
			DynamoTable: "vapi_reports",
		},
		Aggregation: AggregationConfig{
			DefaultRadiusMeters: 1000,
			MaxRadiusMeters:     5000,
			QueryTimeout:        5 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthDev,
		},
		Realtime: RealtimeConfig{
			IoTTopicPrefix: "vapi/areas",
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment variables. A .env file in the working
// directory is loaded into the environment first; variables already set win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := NewDefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("VAPI_PORT", &c.Server.Port)
	setString("VAPI_STORE_DRIVER", &c.Store.Driver)
	setString("VAPI_STORE_DSN", &c.Store.DSN)
	setString("VAPI_REPORTS_BACKEND", &c.Reports.Backend)
	setString("VAPI_DYNAMO_TABLE", &c.Reports.DynamoTable)
	setString("VAPI_AUTH_MODE", &c.Auth.Mode)
	setString("VAPI_JWT_SECRET", &c.Auth.JWTSecret)
	setString("VAPI_IOT_ENDPOINT", &c.Realtime.IoTEndpoint)
	setString("VAPI_IOT_TOPIC_PREFIX", &c.Realtime.IoTTopicPrefix)
	setString("AWS_REGION", &c.AWS.Region)
	setString("VAPI_LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv("VAPI_LOG_DEVELOPMENT"); ok {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VAPI_LOG_DEVELOPMENT: %w", err)
		}
		c.Log.Development = dev
	}

	// Accept both "8080" and ":8080".
	if c.Server.Port != "" && !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	return nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Reports.Backend {
	case "":
	case BackendDynamo:
		if c.Reports.DynamoTable == "" {
			errs = append(errs, errors.New("reports.dynamo_table is required for the dynamo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown reports.backend %q", c.Reports.Backend))
	}

	switch c.Auth.Mode {
	case AuthNone, AuthDev:
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("auth.jwt_secret is required for jwt mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.mode %q", c.Auth.Mode))
	}

	a := c.Aggregation
	if a.DefaultRadiusMeters <= 0 || a.MaxRadiusMeters <= 0 {
		errs = append(errs, errors.New("aggregation radii must be positive"))
	} else if a.DefaultRadiusMeters > a.MaxRadiusMeters {
		errs = append(errs, errors.New("aggregation.default_radius_meters exceeds max_radius_meters"))
	}

	return errors.Join(errs...)
}
