package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phillarmonic/dotpipe/internal/dom"
)

const rows = `<html><body>
<div id="solo" class="row-header">h</div>
<p class="row">0</p><p class="row">1</p><p class="row">2</p><p class="row">3</p><p class="row">4</p>
</body></html>`

func contents(els []dom.Element) []string {
	out := []string{}
	for _, el := range els {
		out = append(out, el.Content())
	}
	return out
}

func TestResolve(t *testing.T) {
	doc, err := dom.ParseString(rows)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		index    string
		expected []string
	}{
		{"class all", ".row", "", []string{"0", "1", "2", "3", "4"}},
		{"slice", ".row", "1:4", []string{"1", "2", "3"}},
		{"negative single", ".row", "-1", []string{"4"}},
		{"single", ".row", "2", []string{"2"}},
		{"list keeps order", ".row", "3,0,9", []string{"3", "0"}},
		{"slice open start", ".row", ":2", []string{"0", "1"}},
		{"slice open end", ".row", "3:", []string{"3", "4"}},
		{"slice step", ".row", "0:5:2", []string{"0", "2", "4"}},
		{"slice negative end", ".row", "1:-1", []string{"1", "2", "3"}},
		{"slice clamped", ".row", "-10:99", []string{"0", "1", "2", "3", "4"}},
		{"out of range dropped", ".row", "7", []string{}},
		{"non numeric means all", ".row", "x", []string{"0", "1", "2", "3", "4"}},
		{"hash id", "#solo", "", []string{"h"}},
		{"dollar id", "$solo", "", []string{"h"}},
		{"bare id", "solo", "", []string{"h"}},
		{"id ignores index", "#solo", "3", []string{"h"}},
		{"missing id", "#nope", "", []string{}},
		{"missing class", ".nope", "0", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contents(Resolve(doc, tt.token, tt.index))
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Resolve(%q, %q) mismatch (-want +got):\n%s", tt.token, tt.index, diff)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  Selector
	}{
		{"#a", Selector{Kind: IDSelector, Name: "a"}},
		{"$a", Selector{Kind: IDSelector, Name: "a"}},
		{"a", Selector{Kind: IDSelector, Name: "a"}},
		{".a", Selector{Kind: ClassSelector, Name: "a"}},
	}
	for _, tt := range tests {
		if got := Parse(tt.token); got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
}

func TestIndexApply_ZeroStep(t *testing.T) {
	idx := ParseIndex("0:3:0")
	if diff := cmp.Diff([]int{0, 1, 2}, idx.Apply(3)); diff != "" {
		t.Errorf("zero step should fall back to 1 (-want +got):\n%s", diff)
	}
}
