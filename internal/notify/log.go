package notify

import (
	"context"

	"tvp-go/internal/tv"
)

// Log writes each notification to a logger.
type Log struct {
	log tv.Logger
}

var _ tv.Notifier = (*Log)(nil)

func NewLog(log tv.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, uri string) error {
	l.log.Info("content changed", "uri", uri)
	return nil
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
