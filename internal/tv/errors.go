package tv

import "github.com/zeebo/errs"

// Error classes returned across the store. Test membership with Class.Has.
var (
	// ErrNotFound covers unknown paths and missing logo targets.
	ErrNotFound = errs.Class("not found")
	// ErrInvalidArgument covers malformed identifiers, bad sort fields and missing columns.
	ErrInvalidArgument = errs.Class("invalid argument")
	// ErrPermissionDenied covers row and column level access violations.
	ErrPermissionDenied = errs.Class("permission denied")
	// ErrUnsupported is returned for operations a path does not accept.
	ErrUnsupported = errs.Class("unsupported operation")
	// ErrStorage wraps failures reported by the relational store.
	ErrStorage = errs.Class("storage failure")
	// ErrDecode is reported by logo tasks whose bytes are not an image.
	ErrDecode = errs.Class("decode failure")
)
