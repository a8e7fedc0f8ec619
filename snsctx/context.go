// Package snsctx carries per-command settings through a context.
package snsctx

import (
	"context"
	"log/slog"
)

type key int

const (
	keyVerbose key = iota
	keyLogger
)

// IsVerbose reports whether raw bus traffic should be dumped.
func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(keyVerbose).(bool)
	return v
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, keyVerbose, value)
}

// WithLogger attaches a logger, typically one carrying the backend and device attributes.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, keyLogger, l)
}

// Logger returns the attached logger or the default one.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
