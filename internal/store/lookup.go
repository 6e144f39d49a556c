package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup follows a dotted path through nested mappings and sequences, e.g.
// "database.hosts.0". A key containing dots is matched whole before the path
// is split. Strings are expanded at every depth and the result is a copy.
func (s *Store) Lookup(path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[path]; ok {
		return s.expandDeepLocked(v), nil
	}

	parts := strings.Split(path, ".")
	current, ok := s.values[parts[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, parts[0])
	}

	for i, part := range parts[1:] {
		parent := strings.Join(parts[:i+1], ".")
		next, err := child(current, part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q under %q: %v", ErrSubKey, part, parent, err)
		}
		current = next
	}
	return s.expandDeepLocked(current), nil
}

func child(node any, part string) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[part]
		if !ok {
			return nil, fmt.Errorf("no such key")
		}
		return v, nil
	case map[any]any:
		for k, v := range n {
			if fmt.Sprint(k) == part {
				return v, nil
			}
		}
		return nil, fmt.Errorf("no such key")
	case []any:
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("sequence index must be an integer")
		}
		if idx < 0 || idx >= len(n) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(n))
		}
		return n[idx], nil
	default:
		return nil, fmt.Errorf("%T is not a mapping or sequence", node)
	}
}

// String returns the expanded string stored under key.
func (s *Store) String(key string) (string, error) {
	v, err := s.GetRequired(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q holds %T, not a string", ErrValueType, key, v)
	}
	return str, nil
}

// Bool returns the boolean stored under key.
func (s *Store) Bool(key string) (bool, error) {
	v, err := s.GetRequired(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q holds %T, not a boolean", ErrValueType, key, v)
	}
	return b, nil
}

// Int returns the integer stored under key.
func (s *Store) Int(key string) (int64, error) {
	v, err := s.GetRequired(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > uint64(1<<63-1) {
			return 0, fmt.Errorf("%w: %q overflows int64", ErrValueType, key)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q holds %T, not an integer", ErrValueType, key, v)
	}
}

// Float returns the number stored under key as a float.
func (s *Store) Float(key string) (float64, error) {
	v, err := s.GetRequired(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q holds %T, not a number", ErrValueType, key, v)
	}
}
