package recipe

import (
	"context"
	"errors"
	"strings"
)

// Error kinds. Every error surfaced by the pipeline matches exactly one of
// these with errors.Is.
var (
	ErrInvalidVersion      = errors.New("invalid version")
	ErrIntegrity           = errors.New("integrity check failed")
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrPatchConflict       = errors.New("patch conflict")
	ErrToolVersionUnknown  = errors.New("build tool version unknown")
	ErrUnsupportedOption   = errors.New("unsupported option")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrBuildFailed         = errors.New("build failed")
	ErrInstallFailed       = errors.New("install failed")
	ErrCancelled           = errors.New("cancelled")
)

// Error carries the kind of a failure together with the operation that
// produced it and the underlying cause, if any.
type Error struct {
	Kind error  // one of the Err* kinds
	Op   string // e.g. "resolve", "patch"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// KindOf returns the kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var kinds = []error{
	ErrCancelled,
	ErrInvalidVersion,
	ErrIntegrity,
	ErrSourceUnavailable,
	ErrPatchConflict,
	ErrToolVersionUnknown,
	ErrUnsupportedOption,
	ErrUnsupportedPlatform,
	ErrBuildFailed,
	ErrInstallFailed,
}

// Classify converts a capability failure into a kinded error. Errors that
// already carry a kind pass through unchanged; a cancelled or expired
// context becomes ErrCancelled; everything else becomes fallback.
func Classify(ctx context.Context, op string, err, fallback error) error {
	if err == nil {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return Errorf(ErrCancelled, op, "", ctx.Err())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Errorf(ErrCancelled, op, "", err)
	}
	if KindOf(err) != nil {
		return err
	}
	return Errorf(fallback, op, "", err)
}
