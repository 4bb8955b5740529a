package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Vision    VisionConfig
	LLM       LLMConfig
	Parser    ParserConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// VisionConfig holds Cloud Vision OCR configuration
type VisionConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxResults        int           `mapstructure:"max_results"`
}

// LLMConfig holds Messages API configuration. An empty APIKey disables
// meal planning and makes shopping lists use the built-in catalog.
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// ParserConfig holds receipt parsing configuration
type ParserConfig struct {
	LineTolerance      float64 `mapstructure:"line_tolerance"`
	CollapseRepeats    bool    `mapstructure:"collapse_repeats"`
	PreprocessImages   bool    `mapstructure:"preprocess_images"`
	MaxImageMB         int     `mapstructure:"max_image_mb"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // only "memory"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file; an empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/smartration/")
	}

	// SMARTRATION_VISION_API_KEY -> vision.api_key
	v.SetEnvPrefix("SMARTRATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults suffice
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads an optional .env file from the working directory.
// Variables already set in the environment are not overridden.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Vision defaults
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.base_url", "https://vision.googleapis.com")
	v.SetDefault("vision.timeout", "30s")
	v.SetDefault("vision.requests_per_minute", 600)
	v.SetDefault("vision.max_results", 0)

	// LLM defaults
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.requests_per_minute", 50)

	// Parser defaults
	v.SetDefault("parser.line_tolerance", 10.0)
	v.SetDefault("parser.collapse_repeats", true)
	v.SetDefault("parser.preprocess_images", true)
	v.SetDefault("parser.max_image_mb", 10)
	v.SetDefault("parser.enable_debug_logging", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Vision.APIKey == "" {
		return fmt.Errorf("vision API key is required (set SMARTRATION_VISION_API_KEY)")
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.Parser.LineTolerance <= 0 {
		return fmt.Errorf("parser line tolerance must be positive, got: %v", config.Parser.LineTolerance)
	}

	if config.Parser.MaxImageMB <= 0 {
		return fmt.Errorf("parser max image size must be positive, got: %d", config.Parser.MaxImageMB)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	if config.LLM.Temperature < 0 || config.LLM.Temperature > 1 {
		return fmt.Errorf("llm temperature must be between 0 and 1, got: %v", config.LLM.Temperature)
	}

	return nil
}

// LLMEnabled reports whether an LLM API key is configured
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}
