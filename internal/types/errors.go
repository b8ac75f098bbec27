package types

import "errors"

// Error classes shared by every component. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrNotFound means a referenced plan or test id does not exist
	ErrNotFound = errors.New("not found")
	// ErrPrecondition means the operation is not allowed in the current state
	ErrPrecondition = errors.New("precondition not met")
	// ErrInvalidInput means a caller-supplied argument is out of range
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable means a document could not be read or written
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedInput means a document or scanned record failed validation
	ErrMalformedInput = errors.New("malformed input")
)
