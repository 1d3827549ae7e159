package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document is an html.Node tree exposed through the Host contract
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Node
}

// Parse reads an HTML document
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{
		root:     root,
		elements: make(map[*html.Node]*Node),
	}, nil
}

// ParseString reads an HTML document from a string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the underlying document node
func (d *Document) Root() *html.Node {
	return d.root
}

// Render writes the document as HTML
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// ElementByID returns the first element whose id matches
func (d *Document) ElementByID(id string) Element {
	if id == "" {
		return nil
	}
	var found *html.Node
	d.walk(func(n *html.Node) bool {
		if getAttr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// ElementsByClass returns every element carrying class
func (d *Document) ElementsByClass(class string) []Element {
	var out []Element
	if class == "" {
		return out
	}
	d.walk(func(n *html.Node) bool {
		if hasClass(n, class) {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// ElementsWithAttr returns every element carrying the attribute
func (d *Document) ElementsWithAttr(name string) []Element {
	var out []Element
	d.walk(func(n *html.Node) bool {
		if _, ok := lookupAttr(n, name); ok {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// wrap returns the stable Node wrapper for an element
func (d *Document) wrap(n *html.Node) *Node {
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Node{doc: d, node: n}
	d.elements[n] = el
	return el
}

// walk visits element nodes depth-first in document order until fn returns false
func (d *Document) walk(fn func(*html.Node) bool) {
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && !fn(n) {
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.root)
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
