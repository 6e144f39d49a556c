package envreader

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	trueValues  = map[string]struct{}{"1": {}, "t": {}, "y": {}, "true": {}, "yes": {}}
	falseValues = map[string]struct{}{"0": {}, "f": {}, "n": {}, "false": {}, "no": {}}
)

// LookupFunc returns the value of a variable and whether it is set.
type LookupFunc func(name string) (string, bool)

// Reader performs typed lookups against the environment. Every call consults
// the lookup function again; nothing is cached.
type Reader struct {
	lookup LookupFunc
	logger *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLookup replaces os.LookupEnv, primarily for tests.
func WithLookup(fn LookupFunc) Option {
	return func(r *Reader) {
		if fn != nil {
			r.lookup = fn
		}
	}
}

// WithLogger sets the logger used for defaulted and unparsable variables.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reader backed by the process environment.
func New(opts ...Option) *Reader {
	r := &Reader{
		lookup: os.LookupEnv,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type readOptions struct {
	def                 any
	hasDefault          bool
	evalLiteral         bool
	defaultOnParseError bool
	warnIfUnset         bool
	quiet               bool
}

// ReadOption adjusts a single read.
type ReadOption func(*readOptions)

// Default is returned when the variable is not set. Without it a missing
// variable fails with ErrMissingVariable.
func Default(v any) ReadOption {
	return func(o *readOptions) {
		o.def = v
		o.hasDefault = true
	}
}

// EvalLiteral parses the value with ParseLiteral.
func EvalLiteral() ReadOption {
	return func(o *readOptions) {
		o.evalLiteral = true
	}
}

// DefaultOnParseError logs literal parse failures and returns the default
// instead of the error.
func DefaultOnParseError() ReadOption {
	return func(o *readOptions) {
		o.defaultOnParseError = true
	}
}

// WarnIfUnset logs a warning whenever the default is used.
func WarnIfUnset() ReadOption {
	return func(o *readOptions) {
		o.warnIfUnset = true
	}
}

// Quiet keeps values out of the logs, for secrets.
func Quiet() ReadOption {
	return func(o *readOptions) {
		o.quiet = true
	}
}

func collect(opts []ReadOption) readOptions {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Read returns the raw value of name, or its literal evaluation when
// EvalLiteral is given.
func (r *Reader) Read(name string, opts ...ReadOption) (any, error) {
	return r.read(name, collect(opts))
}

func (r *Reader) read(name string, o readOptions) (any, error) {
	if o.quiet {
		r.logger.Debug("reading environment variable", zap.String("variable", name))
	}

	value, ok := r.lookup(name)
	if !ok {
		if !o.hasDefault {
			return nil, fmt.Errorf("%w: $%s", ErrMissingVariable, name)
		}
		if o.warnIfUnset {
			r.logger.Warn("environment variable is using a default value", zap.String("variable", name))
		}
		if !o.quiet {
			r.logger.Info("environment variable defaulted",
				zap.String("variable", name),
				zap.Any("default", o.def),
			)
		}
		return o.def, nil
	}

	if !o.evalLiteral {
		return value, nil
	}

	parsed, err := ParseLiteral(value)
	if err != nil {
		if !o.defaultOnParseError {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
		r.logger.Error("environment variable contains a value which could not be parsed",
			zap.String("variable", name),
			zap.Error(err),
		)
		r.logger.Warn("returning default value", zap.String("variable", name))
		return o.def, nil
	}
	return parsed, nil
}

// ReadString returns the raw value of name. A non-string default fails with
// ErrTypeConversion.
func (r *Reader) ReadString(name string, opts ...ReadOption) (string, error) {
	o := collect(opts)
	o.evalLiteral = false

	value, err := r.read(name, o)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: default for $%s must be a string, got %T", ErrTypeConversion, name, value)
	}
	return s, nil
}

// ReadBool converts name to a boolean. A Default is mandatory. Accepted
// strings, case-insensitively, are 1, t, y, true, yes and 0, f, n, false, no.
func (r *Reader) ReadBool(name string, opts ...ReadOption) (bool, error) {
	o := collect(opts)
	if !o.hasDefault {
		return false, fmt.Errorf("%w: boolean read of $%s requires a default", ErrContract, name)
	}
	o.evalLiteral = false

	value, err := r.read(name, o)
	if err != nil {
		return false, err
	}

	switch v := value.(type) {
	case string:
		lowered := strings.ToLower(v)
		if _, ok := trueValues[lowered]; ok {
			return true, nil
		}
		if _, ok := falseValues[lowered]; ok {
			return false, nil
		}
		return false, fmt.Errorf("%w: could not convert %q to a boolean from $%s", ErrTypeConversion, v, name)
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%w: expected a boolean default for $%s, got %T", ErrTypeConversion, name, value)
	}
}

// ReadNumber evaluates name as a literal and requires a numeric result.
func (r *Reader) ReadNumber(name string, opts ...ReadOption) (Number, error) {
	o := collect(opts)
	o.evalLiteral = true

	value, err := r.read(name, o)
	if err != nil {
		return Number{}, err
	}

	n, err := asNumber(value)
	if err != nil {
		return Number{}, fmt.Errorf("$%s: %w", name, err)
	}
	return n, nil
}

// ReadStrictNumber is ReadNumber restricted to a single kind: an integer is
// rejected when a float was requested and vice versa.
func (r *Reader) ReadStrictNumber(name string, kind NumberKind, opts ...ReadOption) (Number, error) {
	if kind != KindInt && kind != KindFloat {
		return Number{}, fmt.Errorf("%w: strict number read of $%s requires a number kind", ErrContract, name)
	}

	n, err := r.ReadNumber(name, opts...)
	if err != nil {
		return Number{}, err
	}
	if n.Kind() != kind {
		return Number{}, fmt.Errorf("%w: $%s: %s is not a %s", ErrTypeConversion, name, n, kind)
	}
	return n, nil
}

// ReadInt reads a strict integer.
func (r *Reader) ReadInt(name string, opts ...ReadOption) (int64, error) {
	n, err := r.ReadStrictNumber(name, KindInt, opts...)
	if err != nil {
		return 0, err
	}
	return n.Int(), nil
}

// ReadFloat reads a strict float.
func (r *Reader) ReadFloat(name string, opts ...ReadOption) (float64, error) {
	n, err := r.ReadStrictNumber(name, KindFloat, opts...)
	if err != nil {
		return 0, err
	}
	return n.Float(), nil
}
