package cachectl

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect reports that a connection to the store could not be established.
	ErrConnect = errors.New("cachectl: connection failed")
	// ErrCommand reports that an individual store call failed.
	ErrCommand = errors.New("cachectl: store command failed")
	// ErrInvalidArgument reports a rejected operation input or configuration value.
	ErrInvalidArgument = errors.New("cachectl: invalid argument")
	// ErrEnumerationUnsupported is returned by backends that cannot list keys.
	ErrEnumerationUnsupported = errors.New("cachectl: key enumeration not supported by driver")
)

func connectErr(driver Driver, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnect, driver, err)
}

func commandErr(call string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCommand, call, err)
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
