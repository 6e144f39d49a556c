package store

import (
	"fmt"
	"os"
)

// Environment receives the env blocks of loaded files and answers token
// lookups during expansion.
type Environment interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// ProcessEnvironment is the environment of the running process.
type ProcessEnvironment struct{}

func (ProcessEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (ProcessEnvironment) Set(key, value string) error {
	return os.Setenv(key, value)
}

// MapEnvironment is an in-memory environment, used for dry runs and tests.
// Set on a nil MapEnvironment fails instead of panicking.
type MapEnvironment map[string]string

func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnvironment) Set(key, value string) error {
	if m == nil {
		return fmt.Errorf("set %s: nil map environment", key)
	}
	m[key] = value
	return nil
}
