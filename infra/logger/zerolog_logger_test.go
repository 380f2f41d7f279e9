package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	l := NewZerologLogger(&buf, "sensor")
	l.Infow("reading", map[string]any{"temperature_c": 21.5})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sensor", entry["component"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, 21.5, entry["temperature_c"])
	assert.Equal(t, "reading", entry["message"])
}

func TestZerologLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(&buf, "test")
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Level: "verbose", Format: "json"}
	assert.Error(t, cfg.Validate())

	cfg = Config{Level: "debug", Format: "xml"}
	assert.Error(t, cfg.Validate())

	cfg = Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Level)
}

func TestConfigureWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	require.NoError(t, Configure(Config{Level: "info", Format: "json", File: path}))
	defer func() {
		assert.NoError(t, Close())
		assert.NoError(t, Configure(Config{Level: "info", Format: "json"}))
	}()

	New("file-test").Infof("hello %s", "disk")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello disk")
	assert.Contains(t, string(data), `"component":"file-test"`)
}
