package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray .env or
// config.yaml is picked up
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when only the API key is set", func(t *testing.T) {
		isolate(t)
		t.Setenv("SMARTRATION_VISION_API_KEY", "test-key")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)
		assert.Equal(t, "https://vision.googleapis.com", cfg.Vision.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.Vision.Timeout)
		assert.Equal(t, "https://api.anthropic.com", cfg.LLM.BaseURL)
		assert.Equal(t, 4000, cfg.LLM.MaxTokens)
		assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
		assert.InDelta(t, 10.0, cfg.Parser.LineTolerance, 1e-9)
		assert.True(t, cfg.Parser.CollapseRepeats)
		assert.True(t, cfg.Parser.PreprocessImages)
		assert.Equal(t, 10, cfg.Parser.MaxImageMB)
		assert.Equal(t, "memory", cfg.Cache.Type)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 60, cfg.RateLimit.PerIP)
		assert.False(t, cfg.LLMEnabled())
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		isolate(t)
		t.Setenv("SMARTRATION_SERVER_PORT", "9090")
		t.Setenv("SMARTRATION_SERVER_ENVIRONMENT", "production")
		t.Setenv("SMARTRATION_VISION_API_KEY", "vision-key")
		t.Setenv("SMARTRATION_VISION_BASE_URL", "https://vision.example.com")
		t.Setenv("SMARTRATION_LLM_API_KEY", "llm-key")
		t.Setenv("SMARTRATION_LLM_MODEL", "test-model")
		t.Setenv("SMARTRATION_PARSER_LINE_TOLERANCE", "12")
		t.Setenv("SMARTRATION_PARSER_COLLAPSE_REPEATS", "false")
		t.Setenv("SMARTRATION_CACHE_TTL", "1h")
		t.Setenv("SMARTRATION_RATELIMIT_PER_IP", "200")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, "vision-key", cfg.Vision.APIKey)
		assert.Equal(t, "https://vision.example.com", cfg.Vision.BaseURL)
		assert.Equal(t, "llm-key", cfg.LLM.APIKey)
		assert.Equal(t, "test-model", cfg.LLM.Model)
		assert.InDelta(t, 12.0, cfg.Parser.LineTolerance, 1e-9)
		assert.False(t, cfg.Parser.CollapseRepeats)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 200, cfg.RateLimit.PerIP)
		assert.True(t, cfg.LLMEnabled())
	})

	t.Run("reads an explicit YAML config file", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "smartration.yaml")
		yaml := `
server:
  port: "7070"
  allowed_origins:
    - "https://app.example.com"
vision:
  api_key: "file-key"
parser:
  line_tolerance: 8
`
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, "file-key", cfg.Vision.APIKey)
		assert.InDelta(t, 8.0, cfg.Parser.LineTolerance, 1e-9)
	})

	t.Run("fails when an explicit config file is missing", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("SMARTRATION_VISION_API_KEY", "test-key")

		_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		isolate(t)
		t.Setenv("SMARTRATION_VISION_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, "invalid configuration: vision API key is required (set SMARTRATION_VISION_API_KEY)", err.Error())
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		isolate(t)
		t.Setenv("SMARTRATION_VISION_API_KEY", "test-key")
		t.Setenv("SMARTRATION_CACHE_TYPE", "redis")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		isolate(t)
		assert.NoError(t, loadEnvFile())
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		isolate(t)
		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2
# TEST_COMMENTED=should_not_load
`
		require.NoError(t, os.WriteFile(".env", []byte(envContent), 0o644))
		t.Setenv("TEST_VAR_1", "")
		os.Unsetenv("TEST_VAR_1")
		t.Setenv("TEST_VAR_2", "")
		os.Unsetenv("TEST_VAR_2")

		require.NoError(t, loadEnvFile())

		assert.Equal(t, "value1", os.Getenv("TEST_VAR_1"))
		assert.Equal(t, "value2", os.Getenv("TEST_VAR_2"))
		assert.Empty(t, os.Getenv("TEST_COMMENTED"))
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		isolate(t)
		t.Setenv("TEST_OVERRIDE", "existing-value")
		require.NoError(t, os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0o644))

		require.NoError(t, loadEnvFile())
		assert.Equal(t, "existing-value", os.Getenv("TEST_OVERRIDE"))
	})

	t.Run("feeds the API key to Load", func(t *testing.T) {
		isolate(t)
		t.Setenv("SMARTRATION_VISION_API_KEY", "")
		os.Unsetenv("SMARTRATION_VISION_API_KEY")
		require.NoError(t, os.WriteFile(".env", []byte("SMARTRATION_VISION_API_KEY=from-dotenv"), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.Vision.APIKey)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Vision:    VisionConfig{APIKey: "test-key"},
			Parser:    ParserConfig{LineTolerance: 10, MaxImageMB: 10},
			Cache:     CacheConfig{Type: "memory"},
			RateLimit: RateLimitConfig{PerIP: 60},
			LLM:       LLMConfig{Temperature: 0.7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid configuration", mutate: func(*Config) {}, wantErr: false},
		{name: "missing vision key", mutate: func(c *Config) { c.Vision.APIKey = "" }, wantErr: true},
		{name: "unsupported cache type", mutate: func(c *Config) { c.Cache.Type = "redis" }, wantErr: true},
		{name: "zero line tolerance", mutate: func(c *Config) { c.Parser.LineTolerance = 0 }, wantErr: true},
		{name: "zero image limit", mutate: func(c *Config) { c.Parser.MaxImageMB = 0 }, wantErr: true},
		{name: "zero per-IP limit", mutate: func(c *Config) { c.RateLimit.PerIP = 0 }, wantErr: true},
		{name: "temperature above one", mutate: func(c *Config) { c.LLM.Temperature = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
