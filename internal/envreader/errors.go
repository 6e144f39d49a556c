package envreader

import "errors"

var (
	// ErrMissingVariable is returned when a variable is absent and no default was supplied.
	ErrMissingVariable = errors.New("environment variable is not set")
	// ErrLiteralParse is returned when a value cannot be parsed as a literal.
	ErrLiteralParse = errors.New("malformed literal")
	// ErrTypeConversion is returned when a value does not match the requested type.
	ErrTypeConversion = errors.New("type conversion failed")
	// ErrContract is returned when the caller omitted a required argument.
	ErrContract = errors.New("invalid call")
)
