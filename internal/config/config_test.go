package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear all environment variables
	clearConfigEnvVars()

	// Set only required env var (password has no default)
	os.Setenv("DB_PASSWORD", "testpass")
	defer os.Unsetenv("DB_PASSWORD")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Expected env development, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "host.docker.internal" {
		t.Errorf("Expected host host.docker.internal, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5432" {
		t.Errorf("Expected port 5432, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "doldari" {
		t.Errorf("Expected db name doldari, got %s", cfg.Database.Name)
	}
	if cfg.Database.User != "postgres" {
		t.Errorf("Expected user postgres, got %s", cfg.Database.User)
	}
	if cfg.Database.PoolMin != 2 {
		t.Errorf("Expected pool min 2, got %d", cfg.Database.PoolMin)
	}
	if cfg.Database.PoolMax != 10 {
		t.Errorf("Expected pool max 10, got %d", cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.Analysis.ParseConfidenceFloor != 0.80 {
		t.Errorf("Expected parse confidence floor 0.80, got %f", cfg.Analysis.ParseConfidenceFloor)
	}
	if cfg.Analysis.DataPhaseTimeout != 15*time.Second {
		t.Errorf("Expected data phase timeout 15s, got %s", cfg.Analysis.DataPhaseTimeout)
	}
	if cfg.Analysis.LLMPhaseTimeout != 120*time.Second {
		t.Errorf("Expected LLM phase timeout 120s, got %s", cfg.Analysis.LLMPhaseTimeout)
	}
	if cfg.Analysis.SavePhaseTimeout != 10*time.Second {
		t.Errorf("Expected save phase timeout 10s, got %s", cfg.Analysis.SavePhaseTimeout)
	}
	if cfg.LLM.DraftModel != "gpt-4o" {
		t.Errorf("Expected draft model gpt-4o, got %s", cfg.LLM.DraftModel)
	}
	if cfg.LLM.ValidationModel != "gpt-4o-mini" {
		t.Errorf("Expected validation model gpt-4o-mini, got %s", cfg.LLM.ValidationModel)
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	// Set all environment variables
	os.Setenv("PORT", "9090")
	os.Setenv("ENV", "production")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "testdb")
	os.Setenv("DB_USER", "testuser")
	os.Setenv("DB_PASSWORD", "testpass")
	os.Setenv("DB_POOL_MIN", "5")
	os.Setenv("DB_POOL_MAX", "20")
	os.Setenv("CORS_ORIGINS", "http://example.com,https://app.example.com")
	os.Setenv("PARSE_CONFIDENCE_FLOOR", "0.9")
	os.Setenv("PHASE_TIMEOUT_LLM", "45s")
	os.Setenv("OPENAI_DRAFT_MODEL", "gpt-4.1")
	os.Setenv("ADDRESS_BASE_URL", "http://resolver.internal")
	defer clearConfigEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify all values from environment
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("Expected env production, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5433" {
		t.Errorf("Expected port 5433, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("Expected db name testdb, got %s", cfg.Database.Name)
	}
	if cfg.Database.User != "testuser" {
		t.Errorf("Expected user testuser, got %s", cfg.Database.User)
	}
	if cfg.Database.Password != "testpass" {
		t.Errorf("Expected password testpass, got %s", cfg.Database.Password)
	}
	if cfg.Database.PoolMin != 5 {
		t.Errorf("Expected pool min 5, got %d", cfg.Database.PoolMin)
	}
	if cfg.Database.PoolMax != 20 {
		t.Errorf("Expected pool max 20, got %d", cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.CORS.Origins[0] != "http://example.com" {
		t.Errorf("Expected first origin http://example.com, got %s", cfg.CORS.Origins[0])
	}
	if cfg.Analysis.ParseConfidenceFloor != 0.9 {
		t.Errorf("Expected parse confidence floor 0.9, got %f", cfg.Analysis.ParseConfidenceFloor)
	}
	if cfg.Analysis.LLMPhaseTimeout != 45*time.Second {
		t.Errorf("Expected LLM phase timeout 45s, got %s", cfg.Analysis.LLMPhaseTimeout)
	}
	if cfg.LLM.DraftModel != "gpt-4.1" {
		t.Errorf("Expected draft model gpt-4.1, got %s", cfg.LLM.DraftModel)
	}
	if cfg.Upstreams.AddressBaseURL != "http://resolver.internal" {
		t.Errorf("Expected address base URL http://resolver.internal, got %s", cfg.Upstreams.AddressBaseURL)
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	// Clear all environment variables (password has no default)
	clearConfigEnvVars()

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_PASSWORD is missing")
	}
}

func TestValidate_InvalidPoolSizes(t *testing.T) {
	tests := []struct {
		name    string
		poolMin int
		poolMax int
		wantErr bool
	}{
		{
			name:    "negative pool min",
			poolMin: -1,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "zero pool max",
			poolMin: 0,
			poolMax: 0,
			wantErr: true,
		},
		{
			name:    "pool min greater than max",
			poolMin: 15,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "valid pool sizes",
			poolMin: 2,
			poolMax: 10,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.PoolMin = tt.poolMin
			cfg.Database.PoolMax = tt.poolMax

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AnalysisTunables(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "confidence floor above 1",
			mutate:  func(c *Config) { c.Analysis.ParseConfidenceFloor = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative confidence floor",
			mutate:  func(c *Config) { c.Analysis.ParseConfidenceFloor = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero LLM timeout",
			mutate:  func(c *Config) { c.Analysis.LLMPhaseTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero data timeout",
			mutate:  func(c *Config) { c.Analysis.DataPhaseTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "missing draft model",
			mutate:  func(c *Config) { c.LLM.DraftModel = "" },
			wantErr: true,
		},
		{
			name:    "missing validation model",
			mutate:  func(c *Config) { c.LLM.ValidationModel = "" },
			wantErr: true,
		},
		{
			name:    "valid tunables",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "missing port",
			mutate: func(c *Config) { c.Server.Port = "" },
		},
		{
			name:   "missing db host",
			mutate: func(c *Config) { c.Database.Host = "" },
		},
		{
			name:   "missing db password",
			mutate: func(c *Config) { c.Database.Password = "" },
		},
		{
			name:   "missing CORS origins",
			mutate: func(c *Config) { c.CORS.Origins = []string{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "single origin",
			input:  "http://localhost:3000",
			expect: []string{"http://localhost:3000"},
		},
		{
			name:   "multiple origins",
			input:  "http://localhost:3000,http://localhost:3001",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "origins with spaces",
			input:  " http://localhost:3000 , http://localhost:3001 ",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "empty string",
			input:  "",
			expect: []string{},
		},
		{
			name:   "only commas",
			input:  ",,,",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseOrigins(tt.input)
			if len(result) != len(tt.expect) {
				t.Errorf("Expected %d origins, got %d", len(tt.expect), len(result))
				return
			}
			for i, origin := range result {
				if origin != tt.expect[i] {
					t.Errorf("Expected origin %s at index %d, got %s", tt.expect[i], i, origin)
				}
			}
		})
	}
}

// validConfig returns a config that passes Validate, for mutation in tests.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Env:  "development",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Name:     "doldari",
			User:     "postgres",
			Password: "postgres",
			PoolMin:  2,
			PoolMax:  10,
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000"},
		},
		Analysis: AnalysisConfig{
			ParseConfidenceFloor: 0.80,
			DataPhaseTimeout:     15 * time.Second,
			LLMPhaseTimeout:      120 * time.Second,
			SavePhaseTimeout:     10 * time.Second,
		},
		LLM: LLMConfig{
			APIKey:          "test-key",
			DraftModel:      "gpt-4o",
			ValidationModel: "gpt-4o-mini",
		},
	}
}

// Helper function to clear all config-related environment variables
func clearConfigEnvVars() {
	os.Unsetenv("PORT")
	os.Unsetenv("ENV")
	os.Unsetenv("DB_HOST")
	os.Unsetenv("DB_PORT")
	os.Unsetenv("DB_NAME")
	os.Unsetenv("DB_USER")
	os.Unsetenv("DB_PASSWORD")
	os.Unsetenv("DB_POOL_MIN")
	os.Unsetenv("DB_POOL_MAX")
	os.Unsetenv("CORS_ORIGINS")
	os.Unsetenv("PARSE_CONFIDENCE_FLOOR")
	os.Unsetenv("PHASE_TIMEOUT_DATA")
	os.Unsetenv("PHASE_TIMEOUT_LLM")
	os.Unsetenv("PHASE_TIMEOUT_SAVE")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_DRAFT_MODEL")
	os.Unsetenv("OPENAI_VALIDATION_MODEL")
	os.Unsetenv("ADDRESS_BASE_URL")
	os.Unsetenv("MARKET_BASE_URL")
	os.Unsetenv("REGISTRY_BASE_URL")
}
