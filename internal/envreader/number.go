package envreader

import (
	"fmt"
	"strconv"
)

// NumberKind identifies the concrete type held by a Number.
type NumberKind int

const (
	// KindUnset is the zero value; it is never the kind of a parsed Number.
	KindUnset NumberKind = iota
	KindInt
	KindFloat
)

func (k NumberKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unset"
	}
}

// Number is a numeric environment value that remembers whether it was written
// as an integer or a float.
type Number struct {
	kind NumberKind
	i    int64
	f    float64
}

// IntNumber wraps an integer.
func IntNumber(i int64) Number {
	return Number{kind: KindInt, i: i}
}

// FloatNumber wraps a float.
func FloatNumber(f float64) Number {
	return Number{kind: KindFloat, f: f}
}

func (n Number) Kind() NumberKind {
	return n.kind
}

// Int returns the value as an integer, truncating floats.
func (n Number) Int() int64 {
	if n.kind == KindFloat {
		return int64(n.f)
	}
	return n.i
}

// Float returns the value as a float.
func (n Number) Float() float64 {
	if n.kind == KindInt {
		return float64(n.i)
	}
	return n.f
}

func (n Number) String() string {
	switch n.kind {
	case KindInt:
		return strconv.FormatInt(n.i, 10)
	case KindFloat:
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	default:
		return "<unset>"
	}
}

// asNumber converts literal results and caller supplied defaults. Booleans are
// rejected.
func asNumber(v any) (Number, error) {
	switch n := v.(type) {
	case Number:
		if n.kind == KindUnset {
			return Number{}, fmt.Errorf("%w: unset number", ErrTypeConversion)
		}
		return n, nil
	case int:
		return IntNumber(int64(n)), nil
	case int32:
		return IntNumber(int64(n)), nil
	case int64:
		return IntNumber(n), nil
	case uint:
		return IntNumber(int64(n)), nil
	case float32:
		return FloatNumber(float64(n)), nil
	case float64:
		return FloatNumber(n), nil
	default:
		return Number{}, fmt.Errorf("%w: %#v is not a number", ErrTypeConversion, v)
	}
}
