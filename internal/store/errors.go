package store

import "errors"

var (
	// ErrConfigFormat is returned when a configuration file or its env block is not a mapping.
	ErrConfigFormat = errors.New("invalid configuration format")
	// ErrKeyNotFound is returned when a required key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrSubKey is returned when a nested lookup cannot follow its path.
	ErrSubKey = errors.New("nested key not found")
	// ErrValueType is returned by typed getters when the stored value has another type.
	ErrValueType = errors.New("unexpected value type")
)
