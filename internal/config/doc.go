// Package config loads the settings of the confstack command itself from
// multiple sources with precedence: CLI flags > environment variables >
// YAML settings file > defaults. These settings describe which service to
// resolve and how to report it; the service's own configuration is handled
// by package store.
package config
