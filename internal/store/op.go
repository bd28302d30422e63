package store

import (
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind classifies a failed store operation for diagnosis. Both kinds map to
// the same user-facing message; callers branch on the error value, not the
// kind.
type Kind int

const (
	KindGeneric Kind = iota
	KindConnection
)

func (k Kind) String() string {
	if k == KindConnection {
		return "connection"
	}
	return "generic"
}

// OpError is the uniform failure outcome of Run.
type OpError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Run executes a store operation and normalizes any failure into an *OpError,
// logging it with its kind. A successful result is returned untouched, zero
// values included. Run never retries.
func Run[T any](logger *slog.Logger, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil {
		return v, nil
	}

	kind := classify(err)
	logger.Error("store operation failed", "op", op, "kind", kind.String(), "error", err)

	var zero T
	return zero, &OpError{Op: op, Kind: kind, Err: err}
}

// classify separates connectivity-level failures (database unreachable or
// locked out) from everything else.
func classify(err error) Kind {
	if errors.Is(err, driver.ErrBadConn) {
		return KindConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
			return KindConnection
		}
	}
	return KindGeneric
}
