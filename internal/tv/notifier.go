package tv

import "context"

// Notifier receives the canonical identifier of every resource changed by a
// committed mutation. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, uri string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, uri string) error

func (f NotifierFunc) Notify(ctx context.Context, uri string) error { return f(ctx, uri) }
