// Package erruser provides errors whose Error() is a single user-facing
// sentence. The underlying cause stays reachable through Unwrap so the CLI
// can print it on a separate "Details:" line.
package erruser

import (
	"errors"
	"fmt"
)

// Err pairs a user-facing message with the cause that produced it.
type Err struct {
	Msg string
	Err error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the cause. Safe on a nil receiver.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error showing msg. When err is nil the result has no cause.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}

// Newf is New with a formatted message.
func Newf(err error, format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...), err)
}

// Message returns the user-facing line of err and its cause, if any.
// For other errors the cause is whatever err directly wraps.
func Message(err error) (msg string, cause error) {
	if err == nil {
		return "", nil
	}
	var ue *Err
	if errors.As(err, &ue) {
		return err.Error(), ue.Err
	}
	return err.Error(), errors.Unwrap(err)
}
