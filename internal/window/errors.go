package window

import (
	"errors"
	"fmt"
)

// ErrorKind classifies attach/update failures so the service can decide
// between re-checking permission, retrying and giving up.
type ErrorKind int

const (
	PermissionMissing ErrorKind = iota + 1
	PlatformRejected
	ResourceExhausted
	AlreadyAttached
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionMissing:
		return "PermissionMissing"
	case PlatformRejected:
		return "PlatformRejected"
	case ResourceExhausted:
		return "ResourceExhausted"
	case AlreadyAttached:
		return "AlreadyAttached"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Platform implementations return these (optionally wrapped) to tell the
// manager how a failure should be classified. Anything else is PlatformRejected.
var (
	ErrPermissionDenied = errors.New("overlay permission denied by platform")
	ErrNoResources      = errors.New("platform out of window resources")
)

// ErrStaleHandle is returned when a handle no longer refers to the live window.
var ErrStaleHandle = errors.New("window handle is not attached")

// AttachError is returned by Attach and Update.
type AttachError struct {
	Kind ErrorKind
	Err  error
}

func (e *AttachError) Error() string {
	if e.Err == nil {
		return "attach: " + e.Kind.String()
	}
	return fmt.Sprintf("attach: %s: %v", e.Kind, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &AttachError{Kind: k}) match on kind alone.
func (e *AttachError) Is(target error) bool {
	t, ok := target.(*AttachError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

// KindOf returns the AttachError kind carried by err, or 0.
func KindOf(err error) ErrorKind {
	var ae *AttachError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return PermissionMissing
	case errors.Is(err, ErrNoResources):
		return ResourceExhausted
	default:
		return PlatformRejected
	}
}
