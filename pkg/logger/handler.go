package logger

// pkg/logger/handler.go — builds slog handlers from a Formatter spec.
// Colour and the TRACE label are applied through ReplaceAttr so the
// standard text/json handlers keep doing the heavy lifting.

import (
	"io"
	"log/slog"
	"os"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

func newHandler(w io.Writer, f *Formatter, level slog.Leveler) slog.Handler {
	if f == nil {
		f = &Formatter{Format: "text"}
	}

	if f.Format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: renameTrace,
		})
	}

	useColors := isTerminal(w)
	if f.UseColors != nil {
		useColors = *f.UseColors
	}

	replace := renameTrace
	if useColors {
		replace = colorLevel
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replace,
	})
}

// renameTrace relabels the custom trace level; slog would otherwise print
// it as "DEBUG-4".
func renameTrace(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lv, ok := a.Value.Any().(slog.Level); ok && lv == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func colorLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	lv, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}

	var name, color string
	switch {
	case lv <= LevelTrace:
		name, color = "TRACE", ansiBlue
	case lv < slog.LevelInfo:
		name, color = "DEBUG", ansiCyan
	case lv < slog.LevelWarn:
		name, color = "INFO", ansiGreen
	case lv < slog.LevelError:
		name, color = "WARN", ansiYellow
	default:
		name, color = "ERROR", ansiRed
	}
	a.Value = slog.StringValue(color + name + ansiReset)
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
