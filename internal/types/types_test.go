package types

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		kind     Kind
		expected string
	}{
		{"true", BooleanKind, "true"},
		{"false", BooleanKind, "false"},
		{"42", NumberKind, "42"},
		{"3.14", NumberKind, "3.14"},
		{"-10", NumberKind, "-10"},
		{" 7 ", NumberKind, "7"},
		{"1e3", NumberKind, "1000"},
		{"TRUE", StringKind, "TRUE"},
		{"hello world", StringKind, "hello world"},
		{"12px", StringKind, "12px"},
		{"", StringKind, ""},
		{"Infinity", StringKind, "Infinity"},
	}

	for _, test := range tests {
		v := Parse(test.input)
		if v.Kind() != test.kind {
			t.Errorf("Parse(%q) kind = %v, want %v", test.input, v.Kind(), test.kind)
		}
		if v.String() != test.expected {
			t.Errorf("Parse(%q) = %q, want %q", test.input, v.String(), test.expected)
		}
	}
}

func TestParse_BooleanIsNotString(t *testing.T) {
	v := Parse("true")
	if v.Interface() != true {
		t.Fatalf("Expected boolean true, got %#v", v.Interface())
	}
	if v.Display() != "ON" {
		t.Errorf("Expected ON, got %q", v.Display())
	}
	if Bool(false).Display() != "OFF" {
		t.Errorf("Expected OFF, got %q", Bool(false).Display())
	}
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		value    Value
		expected float64
		ok       bool
	}{
		{Number(8), 8, true},
		{String("12px"), 12, true},
		{String("abc"), 0, false},
		{Bool(true), 1, true},
		{Undefined(), 0, false},
	}

	for _, test := range tests {
		n, ok := test.value.AsNumber()
		if ok != test.ok || n != test.expected {
			t.Errorf("AsNumber(%#v) = %v, %v; want %v, %v", test.value, n, ok, test.expected, test.ok)
		}
	}
}

func TestUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() {
		t.Error("zero Value should be undefined")
	}
	if v.String() != "" {
		t.Errorf("undefined should render empty, got %q", v.String())
	}
	if Object(nil).Kind() != UndefinedKind {
		t.Error("nil object should be undefined")
	}
}

func TestFrom(t *testing.T) {
	if From(3).Kind() != NumberKind {
		t.Error("int should become a number")
	}
	if From("x").Kind() != StringKind {
		t.Error("string should stay a string")
	}
	m := map[string]any{"a": 1}
	if From(m).Kind() != ObjectKind {
		t.Error("map should become an object")
	}
}

func TestTruthy(t *testing.T) {
	if Number(0).Truthy() || String("").Truthy() || Undefined().Truthy() {
		t.Error("zero values should be falsy")
	}
	if !Number(2).Truthy() || !String("x").Truthy() || !Bool(true).Truthy() {
		t.Error("non-zero values should be truthy")
	}
}
