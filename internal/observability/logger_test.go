// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/dashprobe/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bufferSyncer lets tests hand a plain buffer to Initialize.
type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &bufferSyncer{}

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "expenses",
			Colors:      config.ColorConfig{Info: "green"},
		}, buf)
		GetLogger().Info("navigated")
		Sync()

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "navigated")
		assert.Contains(t, out, ansiColors["green"]+"INFO"+ansiReset)
		assert.Contains(t, out, "expenses.")
	})

	t.Run("NO_COLOR keeps the console plain", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &bufferSyncer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "ci", Colors: config.ColorConfig{Info: "green"}}, buf)
		GetLogger().Info("navigated")

		assert.Contains(t, buf.String(), "INFO")
		assert.NotContains(t, buf.String(), "\x1b[")
	})

	t.Run("json format produces structured entries", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &bufferSyncer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, buf)
		GetLogger().Warn("unmatched action target", zap.String("key", "typo"))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "unmatched action target", entry["msg"])
		assert.Equal(t, "typo", entry["key"])
	})

	t.Run("log file receives entries", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		logFile := filepath.Join(t.TempDir(), "dashprobe.log")

		Initialize(config.LoggerConfig{Level: "debug", Format: "json", LogFile: logFile, MaxSize: 1}, &bufferSyncer{})
		GetLogger().Error("session start failed")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "session start failed")
	})

	t.Run("only the first call wins", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &bufferSyncer{}

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, buf)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, buf)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	require.NotNil(t, GetLogger())
	assert.Nil(t, globalLogger.Load())
}

func TestIgnorableSyncError(t *testing.T) {
	assert.True(t, ignorableSyncError(&os.PathError{Op: "sync", Path: "/dev/stdout", Err: syscall.EINVAL}))
	assert.False(t, ignorableSyncError(&os.PathError{Op: "sync", Path: "run.log", Err: syscall.EIO}))
}

func TestConsoleLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, ConsoleLevel("SEVERE"))
	assert.Equal(t, zapcore.WarnLevel, ConsoleLevel("warning"))
	assert.Equal(t, zapcore.DebugLevel, ConsoleLevel("INFO"))
	assert.Equal(t, zapcore.DebugLevel, ConsoleLevel("verbose"))
}
