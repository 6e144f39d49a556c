package application

import (
	"fmt"

	"github.com/eugenenazirov/confstack/internal/envreader"
)

// Read modes accepted by ReadVariable.
const (
	ReadString  = "string"
	ReadBool    = "bool"
	ReadInt     = "int"
	ReadFloat   = "float"
	ReadNumber  = "number"
	ReadLiteral = "literal"
)

// ReadModes lists the modes in the order they are documented.
var ReadModes = []string{ReadString, ReadBool, ReadInt, ReadFloat, ReadNumber, ReadLiteral}

// VariableRequest describes a typed environment read issued from the CLI.
// Default is given as text and converted according to Mode.
type VariableRequest struct {
	Name       string
	Mode       string
	Default    string
	HasDefault bool
	// Fallback substitutes the default when a literal cannot be parsed.
	Fallback bool
}

// ReadVariable performs req against the environment.
func (a *App) ReadVariable(req VariableRequest) (any, error) {
	opts, err := readOptions(req)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case "", ReadString:
		return a.env.ReadString(req.Name, opts...)
	case ReadBool:
		return a.env.ReadBool(req.Name, opts...)
	case ReadInt:
		return a.env.ReadInt(req.Name, opts...)
	case ReadFloat:
		return a.env.ReadFloat(req.Name, opts...)
	case ReadNumber:
		n, err := a.env.ReadNumber(req.Name, opts...)
		if err != nil {
			return nil, err
		}
		if n.Kind() == envreader.KindInt {
			return n.Int(), nil
		}
		return n.Float(), nil
	case ReadLiteral:
		return a.env.Read(req.Name, append(opts, envreader.EvalLiteral())...)
	default:
		return nil, fmt.Errorf("unsupported read mode %q", req.Mode)
	}
}

// readOptions converts the textual default: booleans keep the text for
// ReadBool to interpret, numeric and literal modes parse it as a literal.
func readOptions(req VariableRequest) ([]envreader.ReadOption, error) {
	var opts []envreader.ReadOption
	if req.Fallback {
		opts = append(opts, envreader.DefaultOnParseError())
	}
	if !req.HasDefault {
		return opts, nil
	}

	switch req.Mode {
	case ReadInt, ReadFloat, ReadNumber, ReadLiteral:
		def, err := envreader.ParseLiteral(req.Default)
		if err != nil {
			return nil, fmt.Errorf("default for $%s: %w", req.Name, err)
		}
		opts = append(opts, envreader.Default(def))
	default:
		opts = append(opts, envreader.Default(req.Default))
	}
	return opts, nil
}
