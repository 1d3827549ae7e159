package types

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Kind represents the dynamic type of a pipeline value
type Kind int

const (
	UndefinedKind Kind = iota
	BooleanKind
	NumberKind
	StringKind
	ObjectKind
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case UndefinedKind:
		return "undefined"
	case BooleanKind:
		return "boolean"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ObjectKind:
		return "object"
	default:
		return "unknown"
	}
}

var numberLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Value is a tagged pipeline value. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	obj  any
}

// Undefined returns the undefined value
func Undefined() Value { return Value{} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: BooleanKind, b: b} }

// Number creates a numeric value
func Number(n float64) Value { return Value{kind: NumberKind, n: n} }

// String creates a string value
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Object wraps an opaque host value (an element, decoded JSON, a script result).
// A nil object is undefined.
func Object(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: ObjectKind, obj: v}
}

// Parse coerces a raw token: "true"/"false" become booleans, numeric
// literals become numbers, anything else stays a string.
func Parse(raw string) Value {
	switch raw {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, ok := parseNumber(raw); ok {
		return Number(n)
	}
	return String(raw)
}

// From converts a Go value produced by a verb or a decoder into a Value
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return Undefined()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	default:
		return Object(t)
	}
}

// Kind returns the dynamic type of the value
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether the value is unset
func (v Value) IsUndefined() bool { return v.kind == UndefinedKind }

// Interface returns the underlying Go value (nil for undefined)
func (v Value) Interface() any {
	switch v.kind {
	case BooleanKind:
		return v.b
	case NumberKind:
		return v.n
	case StringKind:
		return v.s
	case ObjectKind:
		return v.obj
	default:
		return nil
	}
}

// String returns the text form used by interpolation
func (v Value) String() string {
	switch v.kind {
	case UndefinedKind:
		return ""
	case BooleanKind:
		return strconv.FormatBool(v.b)
	case NumberKind:
		return formatNumber(v.n)
	case StringKind:
		return v.s
	case ObjectKind:
		if s, ok := v.obj.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%v", v.obj)
	default:
		return ""
	}
}

// Display returns the text written into element content; booleans render as ON/OFF
func (v Value) Display() string {
	if v.kind == BooleanKind {
		if v.b {
			return "ON"
		}
		return "OFF"
	}
	return v.String()
}

// AsNumber returns the value as a float64 using leading-prefix parsing.
// Unparseable values yield false.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case NumberKind:
		return v.n, true
	case BooleanKind:
		if v.b {
			return 1, true
		}
		return 0, true
	case StringKind:
		return parseFloatPrefix(v.s)
	default:
		return 0, false
	}
}

// Truthy reports whether the value counts as true in a condition
func (v Value) Truthy() bool {
	switch v.kind {
	case BooleanKind:
		return v.b
	case NumberKind:
		return v.n != 0
	case StringKind:
		return v.s != ""
	case ObjectKind:
		return true
	default:
		return false
	}
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case BooleanKind:
		return v.b == o.b
	case NumberKind:
		return v.n == o.n
	case StringKind:
		return v.s == o.s
	case ObjectKind:
		if !reflect.TypeOf(v.obj).Comparable() || !reflect.TypeOf(o.obj).Comparable() {
			return false
		}
		return v.obj == o.obj
	default:
		return true
	}
}

// GoString renders the value for debugging output
func (v Value) GoString() string {
	switch v.kind {
	case StringKind:
		return strconv.Quote(v.s)
	case UndefinedKind:
		return "undefined"
	default:
		return v.String()
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numberLiteral.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseFloatPrefix mirrors parseFloat: the longest numeric prefix wins
func parseFloatPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for end := len(s); end > 0; end-- {
		if f, ok := parseNumber(s[:end]); ok {
			return f, true
		}
	}
	return 0, false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
