package amari

import "amari/internal/engineerr"

// Errors returned by the client wrap one of these; match with errors.Is.
var (
	ErrShape            = engineerr.ErrShape
	ErrDomain           = engineerr.ErrDomain
	ErrSyntax           = engineerr.ErrSyntax
	ErrNegativeCycle    = engineerr.ErrNegativeCycle
	ErrUnknownFamily    = engineerr.ErrUnknownFamily
	ErrNotFound         = engineerr.ErrNotFound
	ErrUnknownOperation = engineerr.ErrUnknownOperation
	ErrUnavailable      = engineerr.ErrUnavailable
)

// ErrorKind returns the wire code for err, e.g. "shape_error".
func ErrorKind(err error) string {
	return engineerr.Kind(err)
}
