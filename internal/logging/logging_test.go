package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/runnerr0/dreamlog/internal/config"
)

func TestNew_ConsoleOnly(t *testing.T) {
	logger, err := New(config.DefaultConfig().Logging)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Logging
	cfg.File = filepath.Join(dir, "dreamlog.log")

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Info("entry saved")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "entry saved")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	cfg := config.DefaultConfig().Logging
	cfg.Level = "loud"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestVerbose(t *testing.T) {
	cfg := Verbose(config.DefaultConfig().Logging)
	logger, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
