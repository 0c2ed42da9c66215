// Package engineerr holds the error taxonomy shared by every engine.
//
// Engines return errors that wrap exactly one of the sentinels below, so
// callers match with errors.Is and the dispatcher reports Kind(err) on the
// wire. A failing call never returns a partial result.
package engineerr

import (
	"errors"
	"fmt"
)

var (
	ErrShape            = errors.New("shape error")
	ErrDomain           = errors.New("domain error")
	ErrSyntax           = errors.New("syntax error")
	ErrNegativeCycle    = errors.New("negative cycle")
	ErrUnknownFamily    = errors.New("unknown distribution family")
	ErrNotFound         = errors.New("not found")
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrUnavailable marks an operation whose backing resource, such as the
	// store, is not configured.
	ErrUnavailable = errors.New("unavailable")
)

func Shapef(format string, args ...any) error {
	return wrapf(ErrShape, format, args...)
}

func Domainf(format string, args ...any) error {
	return wrapf(ErrDomain, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return wrapf(ErrNotFound, format, args...)
}

func Unavailablef(format string, args ...any) error {
	return wrapf(ErrUnavailable, format, args...)
}

func UnknownFamilyf(format string, args ...any) error {
	return wrapf(ErrUnknownFamily, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// SyntaxError reports a malformed expression at a byte offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

const (
	KindShape            = "shape_error"
	KindDomain           = "domain_error"
	KindSyntax           = "syntax_error"
	KindNegativeCycle    = "negative_cycle_error"
	KindUnknownFamily    = "unknown_family_error"
	KindNotFound         = "not_found_error"
	KindUnknownOperation = "unknown_operation_error"
	KindUnavailable      = "unavailable_error"
	KindInternal         = "internal_error"
)

// Kind maps err onto its taxonomy code.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrShape):
		return KindShape
	case errors.Is(err, ErrDomain):
		return KindDomain
	case errors.Is(err, ErrSyntax):
		return KindSyntax
	case errors.Is(err, ErrNegativeCycle):
		return KindNegativeCycle
	case errors.Is(err, ErrUnknownFamily):
		return KindUnknownFamily
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnknownOperation):
		return KindUnknownOperation
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
