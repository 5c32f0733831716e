package psqlx

import (
	"errors"
)

var (
	ErrInvalidTarget       = errors.New("target must be pointer of a struct or slice")
	ErrNoConnection        = errors.New("no connection")
	ErrTypeAssertionFailed = errors.New("type assertion failed")
	ErrMustBePointer       = errors.New("must be pointer")

	// ErrInvalidValue is returned when a value written to an array or
	// hstore column has the wrong shape.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidLookup is returned when the operand of a lookup does not
	// match what the lookup requires, for example "exact" with a string or
	// "contains" with an empty key list.
	ErrInvalidLookup = errors.New("invalid lookup value")

	// ErrUnsupportedLookup is returned when a lookup has no translation for
	// the column it is applied to.
	ErrUnsupportedLookup = errors.New("unsupported lookup")

	// ErrUnboundMapping is returned when a partial update must be persisted
	// but the mapping is not bound to a row with a primary key.
	ErrUnboundMapping = errors.New("mapping is not bound to a persisted row")

	// ErrUnresolvableReference is returned when a stored reference is
	// malformed or points to a row that does not exist.
	ErrUnresolvableReference = errors.New("unresolvable reference")
)
