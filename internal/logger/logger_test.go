package logger_test

import (
	"testing"

	"github.com/customsubash/image-labelling-pipeline/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Production(t *testing.T) {
	l, err := logger.New("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestNew_Development(t *testing.T) {
	l, err := logger.New("development", "debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := logger.New("production", "loud")
	assert.Error(t, err)
}
