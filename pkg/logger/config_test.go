package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":    LevelTrace,
		"debug":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": slog.LevelError + 4,
		"-8":       LevelTrace,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestInjectUseColors(t *testing.T) {
	cfg := &Config{Formatters: map[string]*Formatter{
		"default": {Format: "text"},
	}}
	cfg.InjectUseColors(true)

	require.NotNil(t, cfg.Formatters["default"].UseColors)
	assert.True(t, *cfg.Formatters["default"].UseColors)
	// The access formatter is created when the payload omitted it.
	require.NotNil(t, cfg.Formatters["access"])
	require.NotNil(t, cfg.Formatters["access"].UseColors)
	assert.True(t, *cfg.Formatters["access"].UseColors)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	payload := `{"version":1,"formatters":{"default":{"format":"json"}},"levels":{"vayu.error":"debug"}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Formatters["default"].Format)
	assert.Equal(t, "debug", cfg.Levels["vayu.error"])
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.yaml")
	payload := "version: 1\nformatters:\n  access:\n    format: text\n    use_colors: false\nlevels:\n  vayu.access: warning\n"
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Formatters["access"].UseColors)
	assert.False(t, *cfg.Formatters["access"].UseColors)
	assert.Equal(t, "warning", cfg.Levels["vayu.access"])
}

func TestLoadFileINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.conf")
	payload := "[levels]\nvayu.error = error\n\n[formatter_default]\nformat = text\nuse_colors = true\n"
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Levels["vayu.error"])
	require.NotNil(t, cfg.Formatters["default"].UseColors)
	assert.True(t, *cfg.Formatters["default"].UseColors)
}

func TestSetLevelControlsTraceEnabled(t *testing.T) {
	SetLevel(slog.LevelInfo)
	assert.False(t, TraceEnabled())

	SetLevel(LevelTrace)
	assert.True(t, TraceEnabled())

	SetLevel(slog.LevelInfo)
}
