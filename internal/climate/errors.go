package climate

import "errors"

var (
	// ErrInvalidRange indicates a bad date interval or chunk size. It is
	// returned before any remote query is issued.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrUnknownVariable indicates a variable name outside the fixed catalog.
	ErrUnknownVariable = errors.New("unknown climate variable")
)
