package logger

// pkg/logger/config.go — the logging configuration payload and its file
// loaders. A payload can come in as a struct, or as a file path ending in
// .json, .yaml/.yml, or anything else (read as an INI-style file with
// [levels] and [formatter_<name>] sections).

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Formatter describes how one output stream renders records.
type Formatter struct {
	// Format is "text" or "json".
	Format string `json:"format" yaml:"format"`
	// UseColors enables ANSI-coloured level names on the text format.
	// Nil means auto (coloured when the stream is a terminal).
	UseColors *bool `json:"use_colors" yaml:"use_colors"`
}

// Config is the structured logging configuration payload.
type Config struct {
	Version    int                   `json:"version" yaml:"version"`
	Formatters map[string]*Formatter `json:"formatters" yaml:"formatters"`
	// Levels maps logger names ("vayu.error", "vayu.access", "vayu.asgi")
	// to level names.
	Levels map[string]string `json:"levels" yaml:"levels"`
}

// DefaultConfig mirrors the stock configuration: text output, info level,
// colour decided per stream.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Formatters: map[string]*Formatter{
			"default": {Format: "text"},
			"access":  {Format: "text"},
		},
		Levels: map[string]string{
			"vayu.error":  "info",
			"vayu.access": "info",
			"vayu.asgi":   "info",
		},
	}
}

// InjectUseColors forces the colour preference onto the two standard
// formatter entries, creating them if the payload omitted them.
func (c *Config) InjectUseColors(useColors bool) {
	if c.Formatters == nil {
		c.Formatters = map[string]*Formatter{}
	}
	for _, name := range []string{"default", "access"} {
		f := c.Formatters[name]
		if f == nil {
			f = &Formatter{Format: "text"}
			c.Formatters[name] = f
		}
		v := useColors
		f.UseColors = &v
	}
}

// LoadFile reads a configuration file. The extension picks the decoder:
// .json and .yaml/.yml are decoded directly into Config; any other
// extension is treated as INI.
func LoadFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg := &Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return cfg, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg := &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return cfg, nil
	default:
		return loadINI(path)
	}
}

func loadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg := &Config{
		Version:    1,
		Formatters: map[string]*Formatter{},
		Levels:     map[string]string{},
	}

	for _, section := range file.Sections() {
		name := section.Name()
		switch {
		case name == "levels":
			for _, key := range section.Keys() {
				cfg.Levels[key.Name()] = key.Value()
			}
		case strings.HasPrefix(name, "formatter_"):
			f := &Formatter{Format: section.Key("format").MustString("text")}
			if section.HasKey("use_colors") {
				v := section.Key("use_colors").MustBool(false)
				f.UseColors = &v
			}
			cfg.Formatters[strings.TrimPrefix(name, "formatter_")] = f
		}
	}
	return cfg, nil
}

// ParseLevel maps a level name or numeric string to a slog.Level.
// Accepted names: trace, debug, info, warning, error, critical.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return slog.LevelError + 4, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return slog.Level(n), nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
