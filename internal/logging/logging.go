package logging

import (
	"context"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log is the base logger used throughout the application.
var Log zerolog.Logger

// Init configures the global logger. Log level can be overridden by the
// LOG_LEVEL environment variable (e.g. debug, info, warn, error).
func Init() {
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(lvl)); err == nil {
			level = l
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339
	Log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// from returns the logger stored in ctx, or the base logger when the
// context carries none. zerolog hands back a disabled logger for bare
// contexts, which would silently swallow everything.
func from(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return Log
}

// Context returns a new context with an update scoped logger containing a
// generated trace_id field.
func Context(ctx context.Context) context.Context {
	logger := from(ctx).With().Str("trace_id", uuid.NewString()).Logger()
	return logger.WithContext(ctx)
}

// WithBot attaches a bot label to the logger stored in ctx. The label is a
// token prefix, never the full token.
func WithBot(ctx context.Context, label string) context.Context {
	logger := from(ctx).With().Str("bot", label).Logger()
	return logger.WithContext(ctx)
}

// WithChat attaches the chat id to the logger stored in ctx.
func WithChat(ctx context.Context, chatID int64) context.Context {
	logger := from(ctx).With().Int64("chat_id", chatID).Logger()
	return logger.WithContext(ctx)
}

// Ctx extracts the logger from the context or returns the base logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := from(ctx)
	return &l
}

// Snippet returns a prefix of s at most n bytes long, never cut inside a
// rune.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
