package notify

import (
	"context"
	"errors"
	"io"

	"tvp-go/internal/tv"
)

// Multi fans a notification out to every sink. All sinks are tried; their
// errors are joined.
type Multi []tv.Notifier

func (m Multi) Notify(ctx context.Context, uri string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, uri); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
