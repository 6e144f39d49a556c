package envreader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Underscores may only separate digits.
var decimalFloatPattern = regexp.MustCompile(`^[+-]?(\d+(_\d+)*(\.(\d+(_\d+)*)?)?|\.\d+(_\d+)*)([eE][+-]?\d+(_\d+)*)?$`)

// ParseLiteral evaluates s as a constant literal. Accepted forms are integers
// (decimal, 0x, 0o and 0b, with optional underscores), floats, True/False,
// None, quoted strings, and flow lists, tuples and maps built from those.
// Tuples are returned as []any and maps as map[string]any. Anything else,
// including bare words, fails with ErrLiteralParse.
func ParseLiteral(s string) (any, error) {
	src := strings.TrimSpace(s)
	if src == "" {
		return nil, fmt.Errorf("%w: empty value", ErrLiteralParse)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(tuplesToLists(src)), &doc); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrLiteralParse, s, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w %q", ErrLiteralParse, s)
	}

	value, err := literalValue(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrLiteralParse, s, err)
	}
	return value, nil
}

func literalValue(n *yaml.Node) (any, error) {
	if n.Anchor != "" || n.Style&yaml.TaggedStyle != 0 {
		return nil, errors.New("anchors and tags are not literals")
	}

	switch n.Kind {
	case yaml.ScalarNode:
		switch {
		case n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0:
			return n.Value, nil
		case n.Style == 0:
			return plainScalar(n.Value)
		default:
			return nil, errors.New("block scalars are not literals")
		}
	case yaml.SequenceNode:
		if n.Style&yaml.FlowStyle == 0 {
			return nil, errors.New("block sequences are not literals")
		}
		items := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			item, err := literalValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case yaml.MappingNode:
		if n.Style&yaml.FlowStyle == 0 {
			return nil, errors.New("block mappings are not literals")
		}
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := literalValue(n.Content[i])
			if err != nil {
				return nil, err
			}
			value, err := literalValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported node kind %d", n.Kind)
	}
}

func plainScalar(v string) (any, error) {
	switch v {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None":
		return nil, nil
	}

	if i, ok, err := parseInteger(v); ok {
		return i, err
	}

	if decimalFloatPattern.MatchString(v) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, "_", ""), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	return nil, fmt.Errorf("unsupported token %q", v)
}

// parseInteger reports ok when v has integer syntax; err is set when it does
// but cannot be represented.
func parseInteger(v string) (int64, bool, error) {
	digits := strings.TrimLeft(v, "+-")
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return 0, false, nil
	}
	if !underscoresBetweenDigits(digits) {
		return 0, true, fmt.Errorf("misplaced underscore in number %s", v)
	}
	// 017 is not a valid literal, octal needs the 0o prefix
	if plain := strings.ReplaceAll(digits, "_", ""); len(plain) > 1 && plain[0] == '0' && plain[1] >= '0' && plain[1] <= '9' {
		if strings.Trim(plain, "0") == "" {
			return 0, true, nil
		}
		if strings.Trim(plain, "0123456789") == "" {
			return 0, true, fmt.Errorf("leading zeros in decimal integer %s", v)
		}
		return 0, false, nil
	}

	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, true, fmt.Errorf("integer %s out of range", v)
		}
		return 0, false, nil
	}
	return i, true, nil
}

// underscoresBetweenDigits reports whether every underscore in digits sits
// between two digits, or directly after a 0x, 0o or 0b prefix.
func underscoresBetweenDigits(digits string) bool {
	for i := 0; i < len(digits); i++ {
		if digits[i] != '_' {
			continue
		}
		if i+1 >= len(digits) || !isHexDigit(digits[i+1]) {
			return false
		}
		if i == 2 && digits[0] == '0' && strings.IndexByte("xXoObB", digits[1]) >= 0 {
			continue
		}
		if i == 0 || !isHexDigit(digits[i-1]) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// tuplesToLists rewrites parentheses outside quoted strings into brackets so
// tuples parse as flow sequences.
func tuplesToLists(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' && i+1 < len(src) {
				b.WriteByte(c)
				i++
				c = src[i]
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			c = '['
		case c == ')':
			c = ']'
		}
		b.WriteByte(c)
	}
	return b.String()
}
