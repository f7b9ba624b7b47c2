package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup builds the process logger and installs it as the slog default.
// Progress and failure lines go to stderr, colored when that is a terminal.
func Setup(level slog.Level) *slog.Logger {
	w := os.Stderr
	log := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
	slog.SetDefault(log)
	return log
}
