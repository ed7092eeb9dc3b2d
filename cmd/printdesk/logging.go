package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// logLevel is shared so loading the config can raise or lower it after the
// handler is installed.
var logLevel = &slog.LevelVar{}

// setupLogger installs the default slog handler: tint on a colour-capable
// stderr, or JSON when format is "json".
func setupLogger(w io.Writer, level, format string) error {
	if level != "" {
		if err := setLogLevel(level); err != nil {
			return err
		}
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	case "", "text":
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isatty.IsTerminal(f.Fd())
			w = colorable.NewColorable(f)
		}
		handler = tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: "15:04:05.000",
			NoColor:    noColor,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// systemd stamps every line itself.
				if a.Key == slog.TimeKey && len(groups) == 0 && os.Getenv("JOURNAL_STREAM") != "" {
					return slog.Attr{}
				}
				if v, ok := a.Value.Any().(time.Duration); ok && a.Key == "duration" {
					return slog.Duration(a.Key, v.Round(time.Microsecond))
				}
				return a
			},
		})
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func setLogLevel(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	logLevel.Set(l)
	return nil
}
