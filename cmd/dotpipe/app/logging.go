package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// NewLogger builds the diagnostic logger: text on w, and the systemd
// journal as well when running as a service
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}

	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	if !underSystemd() {
		return slog.New(text), nil
	}

	journal, err := slogjournal.NewHandler(&slogjournal.Options{
		Level:        lvl,
		ReplaceGroup: journalKey,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			a.Key = journalKey(a.Key)
			return a
		},
	})
	if err != nil {
		logger := slog.New(text)
		logger.Warn("systemd journal unavailable", "error", err)
		return logger, nil
	}
	return slog.New(slogmulti.Fanout(text, journal)), nil
}

func underSystemd() bool {
	return os.Getenv("INVOCATION_ID") != "" && os.Getenv("JOURNAL_STREAM") != ""
}

// journalKey maps an attribute key to a journal field name
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return '_'
		}
	}, key)
}
