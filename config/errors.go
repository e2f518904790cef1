package config

import (
	"errors"
	"fmt"
)

// FatalError marks a bootstrap failure that cannot be recovered from:
// symbolic-name resolution failure, socket bind failure, or factory
// instantiation failure when factory mode was explicitly requested. The
// embedding caller decides whether to exit with status 1 or propagate;
// the CLI exits.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

func fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}
