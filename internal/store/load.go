package store

import (
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvKey is the reserved top-level key whose mapping is exported to the
// environment instead of being stored.
const EnvKey = "env"

const mergeTag = "!!merge"

type entry struct {
	key   string
	value any
}

// Load reads every existing candidate file, least specific first, and merges
// it into the store. env receives the env blocks; nil means the store's
// environment.
func (s *Store) Load(env Environment) error {
	for _, path := range s.resolver.Files(true) {
		if err := s.LoadFile(path, env); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile merges a single YAML file into the store. Top-level keys replace
// existing ones wholesale; an env mapping is copied into env and dropped.
func (s *Store) LoadFile(path string, env Environment) error {
	if env == nil {
		env = s.env
	}

	s.logger.Debug("reading configuration file", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read configuration file: %w", err)
	}

	entries, err := parseDocument(path, data)
	if err != nil {
		return err
	}

	remaining := entries[:0]
	for _, e := range entries {
		if e.key != EnvKey {
			remaining = append(remaining, e)
			continue
		}
		vars, err := envBlock(path, e.value)
		if err != nil {
			return err
		}
		for _, name := range sortedKeys(vars) {
			if err := env.Set(name, vars[name]); err != nil {
				return fmt.Errorf("export %s from %s: %w", name, path, err)
			}
		}
	}

	s.mu.Lock()
	for _, e := range remaining {
		s.setLocked(e.key, e.value)
	}
	s.mu.Unlock()

	s.logger.Debug("merged configuration file",
		zap.String("path", path),
		zap.Int("keys", len(remaining)),
	)
	return nil
}

// parseDocument decodes the top-level mapping of data, keeping file order.
// An empty document yields no entries.
func parseDocument(path string, data []byte) ([]entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrConfigFormat, path)
	}

	return mappingEntries(path, root)
}

// mappingEntries decodes the pairs of a mapping node in file order. Entries
// pulled in through << come first so the mapping's own keys override them.
func mappingEntries(path string, n *yaml.Node) ([]entry, error) {
	var merged, own []entry
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s line %d: keys must be scalars", ErrConfigFormat, path, keyNode.Line)
		}

		if keyNode.ShortTag() == mergeTag {
			entries, err := mergeEntries(path, valueNode)
			if err != nil {
				return nil, err
			}
			merged = append(merged, entries...)
			continue
		}

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode %q in %s: %w", keyNode.Value, path, err)
		}
		own = append(own, entry{key: keyNode.Value, value: value})
	}
	return append(merged, own...), nil
}

// mergeEntries flattens the value of a << key: a mapping or a sequence of
// mappings, where earlier mappings take precedence over later ones.
func mergeEntries(path string, n *yaml.Node) ([]entry, error) {
	n = dealias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return mappingEntries(path, n)
	case yaml.SequenceNode:
		var out []entry
		for i := len(n.Content) - 1; i >= 0; i-- {
			item := dealias(n.Content[i])
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: %s line %d: merge sequence items must be mappings", ErrConfigFormat, path, item.Line)
			}
			entries, err := mappingEntries(path, item)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s line %d: merge value must be a mapping or a sequence of mappings", ErrConfigFormat, path, n.Line)
	}
}

func dealias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// envBlock converts the env value to strings. Collections are rejected.
func envBlock(path string, value any) (map[string]string, error) {
	var raw map[string]any
	switch v := value.(type) {
	case map[string]any:
		raw = v
	case map[any]any:
		raw = make(map[string]any, len(v))
		for k, item := range v {
			raw[fmt.Sprint(k)] = item
		}
	default:
		return nil, fmt.Errorf("%w: %s: %s must be a mapping, got %T", ErrConfigFormat, path, EnvKey, value)
	}

	out := make(map[string]string, len(raw))
	for name, item := range raw {
		switch v := item.(type) {
		case nil:
			out[name] = ""
		case string:
			out[name] = v
		case map[string]any, map[any]any, []any:
			return nil, fmt.Errorf("%w: %s: %s.%s must be a scalar", ErrConfigFormat, path, EnvKey, name)
		default:
			out[name] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
