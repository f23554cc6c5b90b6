package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDataError(t *testing.T) {
	cause := fmt.Errorf("bad float")
	err := NewDataError("AAPL.csv", 12, "parse close", cause)

	if got, want := err.Error(), "data error [AAPL.csv:12]: parse close: bad float"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("DataError should unwrap to its cause")
	}

	noRow := NewDataError("AAPL.csv", 0, "empty file", nil)
	if got, want := noRow.Error(), "data error [AAPL.csv]: empty file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStoreErrorMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(NewStoreError("save_match", cause), "persist run")

	if !Is(err, ErrDatabaseError) {
		t.Error("StoreError should match ErrDatabaseError")
	}
	if !Is(err, cause) {
		t.Error("StoreError should match its cause")
	}

	var se *StoreError
	if !As(err, &se) || se.Op != "save_match" {
		t.Errorf("As() failed, got %+v", se)
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := NewValidationError("scanner.workers", 0, "must be positive")
	if !Is(err, ErrInputValidation) {
		t.Error("ValidationError should match ErrInputValidation")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", Wrapf(ErrTimeout, "load %s", "AAPL"), true},
		{"locked", NewStoreError("create_run", fmt.Errorf("database is locked")), true},
		{"invalid series", ErrInvalidSeries, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Error("wrapping nil should return nil")
	}
}
