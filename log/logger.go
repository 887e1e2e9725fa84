// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Logger is the structured key/value logger used across the project.
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes.
	With(ctx ...any) Logger

	// Enabled reports whether l emits log records at the given level.
	Enabled(level slog.Level) bool

	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)

	// Handler returns the underlying handler of the inner logger.
	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a logger with the specified handler set.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) Enabled(level slog.Level) bool {
	return l.inner.Enabled(context.Background(), level)
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.inner.Debug(msg, ctx...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.inner.Info(msg, ctx...)
}

func (l *logger) Warn(msg string, ctx ...any) {
	l.inner.Warn(msg, ctx...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.inner.Error(msg, ctx...)
}

func (l *logger) Handler() slog.Handler {
	return l.inner.Handler()
}

// The library stays silent unless the host program installs a handler.
var root atomic.Pointer[Logger]

func init() {
	l := NewLogger(DiscardHandler())
	root.Store(&l)
}

// SetDefault sets the default global logger
func SetDefault(l Logger) {
	root.Store(&l)
}

// Root returns the root logger
func Root() Logger {
	return *root.Load()
}

// WithContext returns a logger derived from the root logger with the given
// attributes attached to every record.
func WithContext(ctx ...any) Logger {
	return Root().With(ctx...)
}
