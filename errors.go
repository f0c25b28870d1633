package cacheprovider

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument matches every *InvalidArgumentError.
	ErrInvalidArgument = errors.New("cacheprovider: invalid argument")
	// ErrUnknownDriver matches every *UnknownDriverError.
	ErrUnknownDriver = errors.New("cacheprovider: unknown driver")
	// ErrInvalidBackend matches every *InvalidBackendError.
	ErrInvalidBackend = errors.New("cacheprovider: invalid backend")
	// ErrUnknownCache matches every *UnknownCacheError.
	ErrUnknownCache = errors.New("cacheprovider: unknown cache")
	// ErrCacheResolved is returned by Registry.Register for a name that is
	// constructed or being constructed.
	ErrCacheResolved = errors.New("cacheprovider: cache already resolved")
)

// InvalidArgumentError reports a missing or malformed cache option.
type InvalidArgumentError struct {
	Option string
	Reason string
	Err    error
}

func (e *InvalidArgumentError) Error() string {
	msg := fmt.Sprintf("cacheprovider: invalid option %q: %s", e.Option, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidArgumentError) Unwrap() error { return e.Err }

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// UnknownDriverError reports a driver whose backend type is not registered.
type UnknownDriverError struct {
	Driver string
	Type   string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("cacheprovider: unknown driver %q (backend type %q)", e.Driver, e.Type)
}

func (e *UnknownDriverError) Is(target error) bool { return target == ErrUnknownDriver }

// InvalidBackendError reports a constructed value lacking the cache capability.
type InvalidBackendError struct {
	Type string
}

func (e *InvalidBackendError) Error() string {
	return fmt.Sprintf("cacheprovider: %s does not implement cachecore.Store", e.Type)
}

func (e *InvalidBackendError) Is(target error) bool { return target == ErrInvalidBackend }

// UnknownCacheError reports a lookup of a name absent from the options.
type UnknownCacheError struct {
	Name string
}

func (e *UnknownCacheError) Error() string {
	return fmt.Sprintf("cacheprovider: unknown cache %q", e.Name)
}

func (e *UnknownCacheError) Is(target error) bool { return target == ErrUnknownCache }

func missingOption(option string) error {
	return &InvalidArgumentError{Option: option, Reason: "required"}
}
