package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline server.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Detector DetectorConfig
	Batch    BatchConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	LogLevel        string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// RedisConfig is optional; without a URL rate limiting runs in-process.
type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	// APIKeyHashes are bcrypt hashes of accepted bearer keys. Empty disables auth.
	APIKeyHashes   []string
	RequestsPerMin int
}

type DetectorConfig struct {
	Provider         string
	URL              string
	Timeout          time.Duration
	ClassMappingPath string
}

type BatchConfig struct {
	MaxConcurrentJobs int
	ImageWorkers      int
}

var validProviders = map[string]bool{
	"none": true,
	"http": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables (and an optional .env file)
// and returns a validated Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PIPELINE_PORT", 8000)
	v.SetDefault("PIPELINE_ENV", "production")
	v.SetDefault("PIPELINE_LOG_LEVEL", "info")
	v.SetDefault("MAX_UPLOAD_BYTES", 20<<20)
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("API_KEY_HASHES", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 60)
	v.SetDefault("DETECTOR_PROVIDER", "none")
	v.SetDefault("DETECTOR_URL", "")
	v.SetDefault("DETECTOR_TIMEOUT", "30s")
	v.SetDefault("CLASS_MAPPING_PATH", "")
	v.SetDefault("MAX_CONCURRENT_JOBS", 2)
	v.SetDefault("IMAGE_WORKERS", 4)

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("PIPELINE_PORT"),
			Env:             v.GetString("PIPELINE_ENV"),
			LogLevel:        strings.ToLower(v.GetString("PIPELINE_LOG_LEVEL")),
			MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Auth: AuthConfig{
			APIKeyHashes:   splitList(v.GetString("API_KEY_HASHES")),
			RequestsPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
		},
		Detector: DetectorConfig{
			Provider:         strings.ToLower(v.GetString("DETECTOR_PROVIDER")),
			URL:              v.GetString("DETECTOR_URL"),
			Timeout:          v.GetDuration("DETECTOR_TIMEOUT"),
			ClassMappingPath: v.GetString("CLASS_MAPPING_PATH"),
		},
		Batch: BatchConfig{
			MaxConcurrentJobs: v.GetInt("MAX_CONCURRENT_JOBS"),
			ImageWorkers:      v.GetInt("IMAGE_WORKERS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PIPELINE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("PIPELINE_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if !validProviders[c.Detector.Provider] {
		return fmt.Errorf("DETECTOR_PROVIDER must be one of none, http; got %q", c.Detector.Provider)
	}
	if c.Detector.Provider == "http" {
		if c.Detector.URL == "" {
			return fmt.Errorf("DETECTOR_URL is required when DETECTOR_PROVIDER is http")
		}
		if !strings.HasPrefix(c.Detector.URL, "http://") && !strings.HasPrefix(c.Detector.URL, "https://") {
			return fmt.Errorf("DETECTOR_URL must start with http:// or https://, got %q", c.Detector.URL)
		}
	}
	if c.Detector.Timeout <= 0 {
		return fmt.Errorf("DETECTOR_TIMEOUT must be positive, got %s", c.Detector.Timeout)
	}

	if c.Batch.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1, got %d", c.Batch.MaxConcurrentJobs)
	}
	if c.Batch.ImageWorkers < 1 {
		return fmt.Errorf("IMAGE_WORKERS must be at least 1, got %d", c.Batch.ImageWorkers)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
