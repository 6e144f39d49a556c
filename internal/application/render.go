package application

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confstack/internal/config"
	"github.com/eugenenazirov/confstack/internal/store"
)

// Render writes v in the configured output format.
func (a *App) Render(w io.Writer, v any) error {
	return render(w, a.settings.Output, v)
}

// RenderStore writes the expanded store keeping key insertion order.
func (a *App) RenderStore(w io.Writer) error {
	if a.settings.Output == config.OutputJSON {
		return render(w, config.OutputJSON, a.store.Snapshot())
	}

	doc, err := orderedNode(a.store)
	if err != nil {
		return err
	}
	return render(w, config.OutputYAML, doc)
}

func orderedNode(s *store.Store) (*yaml.Node, error) {
	snapshot := s.Snapshot()
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range s.Keys() {
		value, ok := snapshot[key]
		if !ok {
			continue
		}
		var valueNode yaml.Node
		if err := valueNode.Encode(value); err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&valueNode,
		)
	}
	return root, nil
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case "", config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
