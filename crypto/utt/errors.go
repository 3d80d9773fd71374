package utt

import "errors"

var (
	// ErrInvalidArgument is returned when an operation is built from inputs
	// that do not satisfy its preconditions, such as a coin that is not owned
	// by the provided address key. It is a caller error.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedInput is returned when decoding truncated, corrupted or
	// otherwise untrusted bytes fails.
	ErrMalformedInput = errors.New("malformed input")
)
