package script

import (
	"context"
	"strings"
	"testing"

	"github.com/phillarmonic/dotpipe/internal/types"
)

const module = `
def greet(name):
    return "hello " + name

def double(n):
    return n * 2

def total(items):
    s = 0
    for i in items:
        s += i
    return s

def spin():
    while True:
        pass

limit = 10
`

func load(t *testing.T) *Globals {
	t.Helper()
	g, err := Load(context.Background(), "page.star", module, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return g
}

func TestLoad_Names(t *testing.T) {
	g := load(t)

	names := strings.Join(g.Names(), ",")
	if names != "double,greet,spin,total" {
		t.Errorf("Expected callable names only, got %s", names)
	}
	if _, ok := g.Function("limit"); ok {
		t.Error("Expected non-callable global to be ignored")
	}
	if _, ok := g.Function("missing"); ok {
		t.Error("Expected missing function")
	}
}

func TestFunction_Call(t *testing.T) {
	g := load(t)
	ctx := context.Background()

	tests := []struct {
		fn   string
		args []types.Value
		want types.Value
	}{
		{"greet", []types.Value{types.String("Ada")}, types.String("hello Ada")},
		{"double", []types.Value{types.Number(21)}, types.Number(42)},
		{"double", []types.Value{types.Number(1.5)}, types.Number(3)},
		{"total", []types.Value{types.Object([]any{1.0, 2.0, 3.0})}, types.Number(6)},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			fn, ok := g.Function(tt.fn)
			if !ok {
				t.Fatalf("Expected function %s", tt.fn)
			}
			got, err := fn(ctx, tt.args)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("%s() = %#v, want %#v", tt.fn, got, tt.want)
			}
		})
	}
}

func TestFunction_Error(t *testing.T) {
	g := load(t)
	fn, _ := g.Function("greet")

	if _, err := fn(context.Background(), []types.Value{types.Number(1)}); err == nil {
		t.Error("Expected type error from script")
	}
}

func TestFunction_Cancelled(t *testing.T) {
	g := load(t)
	fn, _ := g.Function("spin")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fn(ctx, nil); err == nil {
		t.Error("Expected cancelled call to fail")
	}
}

func TestEval(t *testing.T) {
	vars := map[string]types.Value{
		"n":    types.Number(4),
		"name": types.String("Ada"),
		"on":   types.Bool(true),
	}

	tests := []struct {
		expr string
		want types.Value
	}{
		{"n * 2 + 1", types.Number(9)},
		{"n / 8", types.Number(0.5)},
		{"name.upper()", types.String("ADA")},
		{"not on", types.Bool(false)},
		{"n != 3", types.Bool(true)},
		{"None", types.Undefined()},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(context.Background(), tt.expr, vars)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Eval(%q) = %#v, want %#v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_Error(t *testing.T) {
	if _, err := Eval(context.Background(), "1 +", nil); err == nil {
		t.Error("Expected syntax error")
	}
}
