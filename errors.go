package seqid

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("seqid: invalid configuration")

	// ErrClock is matched by every *ClockError.
	ErrClock = errors.New("seqid: clock error")

	// ErrBackoffOverflow is returned when the wait interval can no longer be
	// doubled. The generator is unusable after this.
	ErrBackoffOverflow = errors.New("seqid: backoff cooldown overflow")

	// ErrTickOverflow is returned when the current tick no longer fits in the
	// layout's timestamp field.
	ErrTickOverflow = errors.New("seqid: tick exceeds timestamp bits")
)

// ConfigError reports which parameter violated which constraint.
type ConfigError struct {
	Param      string
	Value      any
	Constraint string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("seqid: invalid %s %v: %s", e.Param, e.Value, e.Constraint)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// ClockError is returned when the current time cannot be expressed as a
// tick since the custom epoch. It is not retried.
type ClockError struct {
	Epoch time.Time
	Now   time.Time
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("seqid: cannot count ticks from epoch %s to %s",
		e.Epoch.Format(time.RFC3339Nano), e.Now.Format(time.RFC3339Nano))
}

func (e *ClockError) Unwrap() error { return ErrClock }
