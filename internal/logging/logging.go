// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w and sets the global level.
// A nil w writes to stderr. The level stays adjustable through SetLevel.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	SetLevel(lvl)
	return zerolog.New(out).With().Timestamp().Logger(), nil
}

// SetLevel changes the level of every logger derived from New.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// ParseLevel parses a level name case-insensitively. An empty name is info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
}
