package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DevSigningKey is the JWT key used when none is configured. Production refuses it.
const DevSigningKey = "dev-secret-key-change-in-production"

// Server captures process level configuration.
type Server struct {
	Addr          string `env:"HEARTH_ADDR" envDefault:":8080"`
	Environment   string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"hearth"`

	Database DatabaseConfig
	Redis    RedisConfig
	Gen      GenerationConfig
	Modules  ModulesConfig
}

// DatabaseConfig selects PostgreSQL storage. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// RedisConfig configures the module cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// GenerationConfig holds provider credentials and routing defaults.
type GenerationConfig struct {
	DefaultProvider  string        `env:"DEFAULT_PROVIDER" envDefault:"anthropic"`
	ProviderTimeout  time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"60s"`
	UnitsPer1KTokens int64         `env:"UNITS_PER_1K_TOKENS" envDefault:"1"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

// ModulesConfig configures the module registry. An empty OperatorToken
// leaves the definition management routes unmounted.
type ModulesConfig struct {
	CacheTTL      time.Duration `env:"MODULE_CACHE_TTL" envDefault:"5m"`
	OperatorToken string        `env:"OPERATOR_API_TOKEN"`
	Seed          []string      `env:"MODULE_SEED" envSeparator:","`
}

// Load reads configuration from environment variables, after an optional .env file.
func Load() (*Server, error) {
	_ = godotenv.Load()

	cfg := &Server{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Gen.UnitsPer1KTokens < 0 {
		return nil, fmt.Errorf("UNITS_PER_1K_TOKENS must be >= 0")
	}
	if cfg.IsProduction() && cfg.JWTSigningKey == DevSigningKey {
		return nil, fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return cfg, nil
}

// IsProduction reports whether development defaults must be refused.
func (c *Server) IsProduction() bool {
	return c.Environment == "production"
}
