package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Analysis  AnalysisConfig
	LLM       LLMConfig
	Upstreams UpstreamConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AnalysisConfig holds tunables for the analysis pipeline.
// ParseConfidenceFloor is the minimum registry parse confidence required to
// proceed to enrichment without an explicit override flag on the case.
// Timeouts are enforced per phase, not globally: the LLM phases are expected
// to take substantially longer than the data-lookup phases.
type AnalysisConfig struct {
	ParseConfidenceFloor float64
	DataPhaseTimeout     time.Duration
	LLMPhaseTimeout      time.Duration
	SavePhaseTimeout     time.Duration
}

// LLMConfig holds OpenAI-compatible provider configuration for the two
// report-generation passes.
type LLMConfig struct {
	APIKey          string
	DraftModel      string
	ValidationModel string
}

// UpstreamConfig holds base URLs for the external collaborators the core
// consumes as black boxes (address resolver, market data, registry source).
type UpstreamConfig struct {
	AddressBaseURL  string
	MarketBaseURL   string
	RegistryBaseURL string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "doldari")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("PARSE_CONFIDENCE_FLOOR", 0.80)
	v.SetDefault("PHASE_TIMEOUT_DATA", "15s")
	v.SetDefault("PHASE_TIMEOUT_LLM", "120s")
	v.SetDefault("PHASE_TIMEOUT_SAVE", "10s")
	v.SetDefault("OPENAI_DRAFT_MODEL", "gpt-4o")
	v.SetDefault("OPENAI_VALIDATION_MODEL", "gpt-4o-mini")
	v.SetDefault("ADDRESS_BASE_URL", "http://localhost:9801")
	v.SetDefault("MARKET_BASE_URL", "http://localhost:9802")
	v.SetDefault("REGISTRY_BASE_URL", "http://localhost:9803")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Analysis: AnalysisConfig{
			ParseConfidenceFloor: v.GetFloat64("PARSE_CONFIDENCE_FLOOR"),
			DataPhaseTimeout:     v.GetDuration("PHASE_TIMEOUT_DATA"),
			LLMPhaseTimeout:      v.GetDuration("PHASE_TIMEOUT_LLM"),
			SavePhaseTimeout:     v.GetDuration("PHASE_TIMEOUT_SAVE"),
		},
		LLM: LLMConfig{
			APIKey:          v.GetString("OPENAI_API_KEY"),
			DraftModel:      v.GetString("OPENAI_DRAFT_MODEL"),
			ValidationModel: v.GetString("OPENAI_VALIDATION_MODEL"),
		},
		Upstreams: UpstreamConfig{
			AddressBaseURL:  v.GetString("ADDRESS_BASE_URL"),
			MarketBaseURL:   v.GetString("MARKET_BASE_URL"),
			RegistryBaseURL: v.GetString("REGISTRY_BASE_URL"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate analysis tunables
	if c.Analysis.ParseConfidenceFloor < 0 || c.Analysis.ParseConfidenceFloor > 1 {
		return fmt.Errorf("PARSE_CONFIDENCE_FLOOR must be between 0 and 1")
	}
	if c.Analysis.DataPhaseTimeout <= 0 {
		return fmt.Errorf("PHASE_TIMEOUT_DATA must be positive")
	}
	if c.Analysis.LLMPhaseTimeout <= 0 {
		return fmt.Errorf("PHASE_TIMEOUT_LLM must be positive")
	}
	if c.Analysis.SavePhaseTimeout <= 0 {
		return fmt.Errorf("PHASE_TIMEOUT_SAVE must be positive")
	}

	// Validate LLM config
	if c.LLM.DraftModel == "" {
		return fmt.Errorf("OPENAI_DRAFT_MODEL is required")
	}
	if c.LLM.ValidationModel == "" {
		return fmt.Errorf("OPENAI_VALIDATION_MODEL is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
