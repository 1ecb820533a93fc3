package config_test

import (
	"testing"
	"time"

	"github.com/customsubash/image-labelling-pipeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Auth.APIKeyHashes)
	assert.Equal(t, 60, cfg.Auth.RequestsPerMin)
	assert.Equal(t, "none", cfg.Detector.Provider)
	assert.Equal(t, 30*time.Second, cfg.Detector.Timeout)
	assert.Equal(t, 2, cfg.Batch.MaxConcurrentJobs)
	assert.Equal(t, 4, cfg.Batch.ImageWorkers)
}

func TestLoad_CustomServer(t *testing.T) {
	setEnv(t, map[string]string{
		"PIPELINE_PORT":      "9090",
		"PIPELINE_ENV":       "development",
		"PIPELINE_LOG_LEVEL": "DEBUG",
		"SHUTDOWN_TIMEOUT":   "5s",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PIPELINE_PORT", "70000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIPELINE_PORT")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("PIPELINE_LOG_LEVEL", "chatty")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIPELINE_LOG_LEVEL")
}

func TestLoad_APIKeyHashes(t *testing.T) {
	t.Setenv("API_KEY_HASHES", " $2a$hash1 , ,$2a$hash2")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"$2a$hash1", "$2a$hash2"}, cfg.Auth.APIKeyHashes)
}

func TestLoad_RedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_InvalidRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "localhost:6379")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_HTTPDetector(t *testing.T) {
	setEnv(t, map[string]string{
		"DETECTOR_PROVIDER":  "http",
		"DETECTOR_URL":       "http://model-server:8000/predict",
		"DETECTOR_TIMEOUT":   "2m",
		"CLASS_MAPPING_PATH": "model/class_mapping.json",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Detector.Provider)
	assert.Equal(t, "http://model-server:8000/predict", cfg.Detector.URL)
	assert.Equal(t, 2*time.Minute, cfg.Detector.Timeout)
	assert.Equal(t, "model/class_mapping.json", cfg.Detector.ClassMappingPath)
}

func TestLoad_HTTPDetectorRequiresURL(t *testing.T) {
	t.Setenv("DETECTOR_PROVIDER", "http")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DETECTOR_URL is required")
}

func TestLoad_HTTPDetectorBadScheme(t *testing.T) {
	setEnv(t, map[string]string{
		"DETECTOR_PROVIDER": "http",
		"DETECTOR_URL":      "model-server:8000",
	})

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DETECTOR_URL must start with")
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("DETECTOR_PROVIDER", "torch")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DETECTOR_PROVIDER")
}

func TestLoad_BatchLimits(t *testing.T) {
	setEnv(t, map[string]string{
		"MAX_CONCURRENT_JOBS": "8",
		"IMAGE_WORKERS":       "16",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentJobs)
	assert.Equal(t, 16, cfg.Batch.ImageWorkers)
}

func TestLoad_InvalidBatchLimits(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"jobs", "MAX_CONCURRENT_JOBS"},
		{"workers", "IMAGE_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, "0")
			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
