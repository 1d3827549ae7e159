// Package selector resolves selector tokens and index expressions to elements.
package selector

import (
	"strconv"
	"strings"

	"github.com/phillarmonic/dotpipe/internal/dom"
)

// Kind is the shape of a selector token
type Kind int

const (
	IDSelector Kind = iota
	ClassSelector
)

// Selector is a parsed selector token
type Selector struct {
	Kind Kind
	Name string
}

// Parse normalizes a token: `$id` becomes `#id`, a bare token is an id
func Parse(token string) Selector {
	token = strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(token, "."):
		return Selector{Kind: ClassSelector, Name: token[1:]}
	case strings.HasPrefix(token, "#"), strings.HasPrefix(token, "$"):
		return Selector{Kind: IDSelector, Name: token[1:]}
	default:
		return Selector{Kind: IDSelector, Name: token}
	}
}

// String returns the canonical token
func (s Selector) String() string {
	if s.Kind == ClassSelector {
		return "." + s.Name
	}
	return "#" + s.Name
}

// Resolve returns the ordered targets of a selector token. The index
// expression narrows class matches only; id selectors yield zero or one
// element regardless of it.
func Resolve(host dom.Host, token, indexExpr string) []dom.Element {
	sel := Parse(token)
	if sel.Name == "" {
		return nil
	}

	if sel.Kind == IDSelector {
		if el := host.ElementByID(sel.Name); el != nil {
			return []dom.Element{el}
		}
		return nil
	}

	elems := host.ElementsByClass(sel.Name)
	idx := ParseIndex(indexExpr)
	if idx.All() {
		return elems
	}

	positions := idx.Apply(len(elems))
	out := make([]dom.Element, 0, len(positions))
	for _, p := range positions {
		out = append(out, elems[p])
	}
	return out
}

// IndexKind is the shape of an index expression
type IndexKind int

const (
	AllIndex IndexKind = iota
	SingleIndex
	ListIndex
	SliceIndex
)

// Index is a parsed index expression
type Index struct {
	Kind    IndexKind
	Indices []int // single and list forms

	// slice form; nil bounds mean "from the start" / "to the end"
	Start *int
	End   *int
	Step  int
}

// ParseIndex parses "", "N", "a,b,c" or "start:end:step"
func ParseIndex(expr string) Index {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Index{Kind: AllIndex}
	}

	if strings.Contains(expr, ",") {
		idx := Index{Kind: ListIndex}
		for _, part := range strings.Split(expr, ",") {
			if n, ok := parseInt(part); ok {
				idx.Indices = append(idx.Indices, n)
			}
		}
		return idx
	}

	if strings.Contains(expr, ":") {
		parts := strings.Split(expr, ":")
		idx := Index{Kind: SliceIndex, Step: 1}
		if n, ok := parseInt(parts[0]); ok {
			idx.Start = &n
		}
		if len(parts) > 1 {
			if n, ok := parseInt(parts[1]); ok {
				idx.End = &n
			}
		}
		if len(parts) > 2 {
			if n, ok := parseInt(parts[2]); ok && n > 0 {
				idx.Step = n
			}
		}
		return idx
	}

	n, ok := parseInt(expr)
	if !ok {
		return Index{Kind: AllIndex}
	}
	return Index{Kind: SingleIndex, Indices: []int{n}}
}

// All reports whether the expression selects every match unchanged
func (idx Index) All() bool {
	return idx.Kind == AllIndex
}

// Apply maps the expression onto a match list of length n and returns the
// selected positions in order. Out-of-range positions are dropped.
func (idx Index) Apply(n int) []int {
	switch idx.Kind {
	case AllIndex:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out

	case SingleIndex, ListIndex:
		var out []int
		for _, i := range idx.Indices {
			if i < 0 {
				i += n
			}
			if i >= 0 && i < n {
				out = append(out, i)
			}
		}
		return out

	case SliceIndex:
		start, end := 0, n
		if idx.Start != nil {
			start = *idx.Start
		}
		if idx.End != nil {
			end = *idx.End
		}
		if start < 0 {
			start += n
		}
		if end < 0 {
			end += n
		}
		start = max(0, start)
		end = min(n, end)

		step := idx.Step
		if step < 1 {
			step = 1
		}
		var out []int
		for i := start; i < end; i += step {
			out = append(out, i)
		}
		return out
	}
	return nil
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
