package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "text format normal level",
			config: Config{
				Level:  LogLevelNormal,
				Format: "text",
			},
		},
		{
			name: "json format debug level",
			config: Config{
				Level:  LogLevelDebug,
				Format: "json",
			},
		},
		{
			name: "quiet level",
			config: Config{
				Level: LogLevelQuiet,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.Equal(t, tt.config.Level, logger.GetLevel())
		})
	}
}

func TestNewLogger_InvalidLogFile(t *testing.T) {
	_, err := NewLogger(Config{
		Level:   LogLevelNormal,
		LogFile: "/nonexistent-dir/backup.log",
	})
	assert.Error(t, err)
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	require.NotNil(t, logger)
	assert.Equal(t, LogLevelNormal, logger.GetLevel())
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelQuiet, Output: &buf})
	require.NoError(t, err)

	logger.Info("not visible")
	assert.Empty(t, buf.String())

	logger.Error("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf})
	require.NoError(t, err)

	assert.False(t, logger.IsLevelEnabled(LogLevelVerbose))

	logger.SetLevel(LogLevelVerbose)
	assert.True(t, logger.IsLevelEnabled(LogLevelVerbose))
	assert.Equal(t, LogLevelVerbose, logger.GetLevel())
}

func TestLogger_LogDump(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.LogDump("orders", "mysql", 2048, 3*time.Second, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dump", entry["operation"])
	assert.Equal(t, "orders", entry["database"])
	assert.Equal(t, "mysql", entry["engine"])
	assert.Equal(t, float64(2048), entry["size"])
}

func TestLogger_LogDump_Error(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.LogDump("orders", "postgres", 0, time.Second, errors.New("pg_dump not found"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry["error"], "pg_dump not found")
}

func TestLogger_LogStore(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.LogStore("local", "/var/backups", "orders-2024-01-02-030405.sql.gz", 512, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store", entry["operation"])
	assert.Equal(t, "local", entry["storage"])
	assert.Equal(t, "/var/backups", entry["root"])
}

func TestLogger_LogCleanupEntry(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf})
	require.NoError(t, err)

	logger.LogCleanupEntry("orders", "orders-2024-01-15-000000.sql", "deleted", nil)
	out := buf.String()
	assert.True(t, strings.Contains(out, "deleted"))
	assert.True(t, strings.Contains(out, "orders"))
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	require.NoError(t, err)

	logger.WithFields(map[string]interface{}{"run_id": "abc123"}).Info("run started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc123", entry["run_id"])
}
