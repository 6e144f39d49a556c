// Package store holds merged configuration values for one service.
//
// A Store behaves like an ordered mapping. Values are stored exactly as
// written; strings are expanded on every read, resolving $name tokens
// against the store's own keys, the reserved $temp directory and the
// environment, in that order, and a leading ~ against the user root.
// Mappings and sequences are copied on the way in and out, so callers never
// share memory with the store. Mappings with non-string keys are returned
// with their keys formatted as strings.
//
// Reads are safe for concurrent use. Load is expected to run once, before
// concurrent readers start.
package store

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confstack/internal/expand"
	"github.com/eugenenazirov/confstack/internal/resolver"
)

// TempToken is the reserved token expanding to the service temp directory.
const TempToken = "temp"

// Store is an ordered, expanding mapping of configuration keys.
type Store struct {
	resolver *resolver.Resolver
	logger   *zap.Logger
	env      Environment
	depth    int

	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used while loading files.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEnvironment sets the environment consulted during expansion and used
// by Load when it is given a nil environment. Defaults to the process
// environment. A nil MapEnvironment is replaced by an empty one.
func WithEnvironment(env Environment) Option {
	return func(s *Store) {
		switch e := env.(type) {
		case nil:
		case MapEnvironment:
			if e == nil {
				e = MapEnvironment{}
			}
			s.env = e
		default:
			s.env = env
		}
	}
}

// WithExpansionDepth re-applies expansion to its own output up to n times,
// so values referring to other values resolve fully. The default of 1 is a
// single pass.
func WithExpansionDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.depth = n
		}
	}
}

// New creates an empty store whose candidate files come from r. r must not
// be nil.
func New(r *resolver.Resolver, opts ...Option) *Store {
	s := &Store{
		resolver: r,
		logger:   zap.NewNop(),
		env:      ProcessEnvironment{},
		depth:    1,
		values:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the resolver the store loads from.
func (s *Store) Resolver() *resolver.Resolver {
	return s.resolver
}

// TempDirectory is the value of $temp. It is never stored.
func (s *Store) TempDirectory() string {
	return s.resolver.TempDirectory()
}

// Get returns the expanded value of key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return s.expandDeepLocked(v), true
}

// GetDefault returns the expanded value of key, or def when key is absent.
func (s *Store) GetDefault(key string, def any) any {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// GetRequired returns the expanded value of key or ErrKeyNotFound.
func (s *Store) GetRequired(key string) (any, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Raw returns a copy of the value of key without expansion.
func (s *Store) Raw(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return cloneValue(v), ok
}

// Set stores a copy of value under key unexpanded.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	s.setLocked(key, cloneValue(value))
	s.mu.Unlock()
}

// SetDefault stores value when key is absent and returns the expanded value
// now held by key.
func (s *Store) SetDefault(key string, value any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.values[key]
	if !ok {
		current = cloneValue(value)
		s.setLocked(key, current)
	}
	return s.expandDeepLocked(current)
}

// Update stores every entry of values. New keys are appended in sorted order.
func (s *Store) Update(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.setLocked(k, cloneValue(values[k]))
	}
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
	return true
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Keys returns a copy of the keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.keys)
}

// All iterates keys in insertion order with their expanded values. The store
// may be modified during iteration; keys removed before they are reached are
// skipped.
func (s *Store) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, key := range s.Keys() {
			v, ok := s.Get(key)
			if !ok {
				continue
			}
			if !yield(key, v) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the store with strings expanded at every depth.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = s.expandDeepLocked(v)
	}
	return out
}

func (s *Store) setLocked(key string, value any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Store) expander() expand.Expander {
	return expand.Expander{
		Resolve: expand.Chain(s.resolveKeyLocked, s.resolveReserved, s.env.Lookup),
		Home:    s.resolver.Platform().UserRoot,
	}
}

func (s *Store) expandLocked(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}

	e := s.expander()
	if s.depth <= 1 {
		return e.ExpandString(str)
	}

	out, converged := e.ExpandPasses(str, s.depth)
	if !converged {
		s.logger.Warn("expansion did not converge",
			zap.String("value", str),
			zap.Int("passes", s.depth),
		)
	}
	return out
}

func (s *Store) expandDeepLocked(value any) any {
	switch v := value.(type) {
	case string:
		return s.expandLocked(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = s.expandDeepLocked(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = s.expandDeepLocked(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.expandDeepLocked(item)
		}
		return out
	default:
		return value
	}
}

// cloneValue deep-copies mappings and sequences; other values are returned
// as is.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

// resolveKeyLocked resolves a token against raw stored values; the caller
// holds the lock.
func (s *Store) resolveKeyLocked(name string) (string, bool) {
	v, ok := s.values[name]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	if str, ok := v.(string); ok {
		return str, true
	}
	return fmt.Sprint(v), true
}

func (s *Store) resolveReserved(name string) (string, bool) {
	if name == TempToken {
		return s.TempDirectory(), true
	}
	return "", false
}
