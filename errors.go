package zerofs

import "github.com/pkg/errors"

// Errno is a stable, comparable error code returned by every public
// ZeroFS operation on failure. It mirrors the negative integer enumeration
// from the reference firmware so host tooling speaking the same wire
// protocol can translate codes directly.
type Errno int

// Error codes, numerically stable: do not renumber.
const (
	ErrMaxFiles    Errno = -2 // MaxFiles reached; repack did not free a slot
	ErrNotFound    Errno = -3
	ErrReadMode    Errno = -4 // mutating call issued while in read mode
	ErrNoSpace     Errno = -5
	ErrOpen        Errno = -6 // driver reported corruption on a read path
	ErrArg         Errno = -7
	ErrWriteMode   Errno = -8 // read-only call issued while in write mode
	ErrOverflow    Errno = -9
	ErrBadSector   Errno = -10
	ErrInvalidName Errno = -11
	ErrInvalidFp   Errno = -12
)

var errnoText = map[Errno]string{
	ErrMaxFiles:    "maximum number of files reached",
	ErrNotFound:    "file not found",
	ErrReadMode:    "operation forbidden in read mode",
	ErrNoSpace:     "no space left on device",
	ErrOpen:        "open failed",
	ErrArg:         "invalid argument",
	ErrWriteMode:   "operation forbidden in write mode",
	ErrOverflow:    "seek overflow",
	ErrBadSector:   "bad sector",
	ErrInvalidName: "invalid file name",
	ErrInvalidFp:   "invalid file pointer",
}

func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return "zerofs: unknown error"
}

// convenience aliases used internally; unexported to keep the exported
// surface limited to the Err* constants above.
const (
	errArg         = ErrArg
	errNotFound    = ErrNotFound
	errNoSpace     = ErrNoSpace
	errReadMode    = ErrReadMode
	errWriteMode   = ErrWriteMode
	errMaxFiles    = ErrMaxFiles
	errOverflow    = ErrOverflow
	errBadSector   = ErrBadSector
	errInvalidName = ErrInvalidName
	errInvalidFp   = ErrInvalidFp
	errOpen        = ErrOpen
)

// wrap attaches operation context to a sentinel Errno without losing its
// identity for errors.Is/errors.As.
func wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Code extracts the underlying Errno from err, if any, unwrapping any
// github.com/pkg/errors context added by wrap.
func Code(err error) (Errno, bool) {
	var e Errno
	if errors.As(err, &e) {
		return e, true
	}
	return 0, false
}
