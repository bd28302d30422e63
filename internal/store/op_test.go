package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSuccessReturnsResultUnchanged(t *testing.T) {
	logger := discardLogger()

	n, err := Run(logger, "test.zero", func() (int, error) { return 0, nil })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 0 {
		t.Errorf("result = %d, want 0", n)
	}

	list, err := Run(logger, "test.empty", func() ([]string, error) { return []string{}, nil })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("result = %v, want empty non-nil slice", list)
	}
}

func TestRunFailureReturnsOpError(t *testing.T) {
	boom := errors.New("boom")

	_, err := Run(discardLogger(), "test.fail", func() (string, error) { return "partial", boom })
	if err == nil {
		t.Fatal("expected error")
	}

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OpError", err)
	}
	if opErr.Op != "test.fail" {
		t.Errorf("op = %q, want %q", opErr.Op, "test.fail")
	}
	if opErr.Kind != KindGeneric {
		t.Errorf("kind = %v, want KindGeneric", opErr.Kind)
	}
	if !errors.Is(err, boom) {
		t.Error("expected wrapped error to match original")
	}
}

func TestRunConnectionFailureKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"bad conn", driver.ErrBadConn},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn)},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Run(discardLogger(), "test.conn", func() (int, error) { return 0, tc.err })

			var opErr *OpError
			if !errors.As(err, &opErr) {
				t.Fatalf("error type = %T, want *OpError", err)
			}
			if opErr.Kind != KindConnection {
				t.Errorf("kind = %v, want KindConnection", opErr.Kind)
			}
		})
	}
}

func TestRunFailureZeroesResult(t *testing.T) {
	v, err := Run(discardLogger(), "test.zeroed", func() (string, error) { return "leftover", errors.New("boom") })
	if err == nil {
		t.Fatal("expected error")
	}
	if v != "" {
		t.Errorf("result = %q, want zero value", v)
	}
}
