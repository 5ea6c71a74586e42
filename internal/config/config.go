package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Stytch   StytchConfig
	MCP      MCPConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// StytchConfig identifies the Stytch B2B project used for session
// verification. Domain hosts the JWKS endpoint; APIBaseURL is the
// sessions/authenticate endpoint base.
type StytchConfig struct {
	ProjectID     string
	Secret        string
	Domain        string
	APIBaseURL    string
	SessionCookie string
}

// MCPMode selects how the tool-call server resolves the tenant. The two
// modes are mutually exclusive within one server instance.
type MCPMode string

const (
	// MCPModePublic requires an explicit organization_id argument on every tool.
	MCPModePublic MCPMode = "public"
	// MCPModeAuthenticated derives the organization from the verified bearer JWT.
	MCPModeAuthenticated MCPMode = "authenticated"
)

// MCPConfig controls the tool-call server.
type MCPConfig struct {
	Host string
	Port string
	Mode MCPMode
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	mcpMode := MCPMode(strings.ToLower(getEnv("MCP_MODE", string(MCPModeAuthenticated))))
	if mcpMode != MCPModePublic && mcpMode != MCPModeAuthenticated {
		return nil, fmt.Errorf("invalid MCP_MODE: %q", mcpMode)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-board"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               getEnv("APP_BASE_URL", "http://localhost:8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stytch: StytchConfig{
			ProjectID:     os.Getenv("STYTCH_PROJECT_ID"),
			Secret:        os.Getenv("STYTCH_SECRET"),
			Domain:        getEnv("STYTCH_DOMAIN", "https://test.stytch.com"),
			APIBaseURL:    getEnv("STYTCH_API_BASE_URL", "https://test.stytch.com/v1/b2b"),
			SessionCookie: getEnv("STYTCH_SESSION_COOKIE", ""),
		},
		MCP: MCPConfig{
			Host: getEnv("MCP_HOST", "0.0.0.0"),
			Port: getEnv("MCP_PORT", "8081"),
			Mode: mcpMode,
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addr returns the MCP bind address.
func (m MCPConfig) Addr() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

// JWKSURL returns the provider's published signing-key endpoint.
func (s StytchConfig) JWKSURL() string {
	return strings.TrimRight(s.Domain, "/") + "/.well-known/jwks.json"
}

// Issuer returns the expected JWT issuer for this project.
func (s StytchConfig) Issuer() string {
	return "stytch.com/" + s.ProjectID
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
