package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/phillarmonic/dotpipe/internal/types"
)

// Node is an element of a Document
type Node struct {
	doc  *Document
	node *html.Node
}

// HTML returns the wrapped html.Node
func (e *Node) HTML() *html.Node {
	return e.node
}

// ID returns the id attribute
func (e *Node) ID() string {
	return getAttr(e.node, "id")
}

// Tag returns the lower-case tag name
func (e *Node) Tag() string {
	return e.node.Data
}

// HasClass reports whether the element carries class
func (e *Node) HasClass(class string) bool {
	return hasClass(e.node, class)
}

// String identifies the element in log output
func (e *Node) String() string {
	if id := e.ID(); id != "" {
		return "#" + id
	}
	return "<" + e.node.Data + ">"
}

// Attr returns an attribute value and whether it is present
func (e *Node) Attr(name string) (string, bool) {
	return lookupAttr(e.node, name)
}

// SetAttr sets or replaces an attribute
func (e *Node) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute if present
func (e *Node) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// Content renders the element's children
func (e *Node) Content() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// SetContent replaces the element's children with parsed markup
func (e *Node) SetContent(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse content for %s: %w", e, err)
	}
	e.clear()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Text returns the concatenated text of all descendant text nodes
func (e *Node) Text() string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(e.node)
	return sb.String()
}

// SetText replaces the element's children with a single text node
func (e *Node) SetText(text string) {
	e.clear()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *Node) clear() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// reflected string properties backed by an attribute of the same name
var stringProps = map[string]string{
	"id":          "id",
	"className":   "class",
	"title":       "title",
	"href":        "href",
	"src":         "src",
	"name":        "name",
	"type":        "type",
	"placeholder": "placeholder",
	"lang":        "lang",
	"dir":         "dir",
	"alt":         "alt",
}

// reflected boolean properties backed by attribute presence
var boolProps = map[string]bool{
	"checked":  true,
	"disabled": true,
	"hidden":   true,
	"readOnly": true,
	"required": true,
	"selected": true,
}

// Property reads a named element property
func (e *Node) Property(name string) (types.Value, bool) {
	if attr, ok := stringProps[name]; ok {
		return types.String(getAttr(e.node, attr)), true
	}
	if boolProps[name] {
		_, present := lookupAttr(e.node, strings.ToLower(name))
		return types.Bool(present), true
	}

	switch name {
	case "innerHTML":
		return types.String(e.Content()), true
	case "textContent", "innerText":
		return types.String(e.Text()), true
	case "outerHTML":
		var buf bytes.Buffer
		if err := html.Render(&buf, e.node); err != nil {
			return types.Undefined(), false
		}
		return types.String(buf.String()), true
	case "tagName":
		return types.String(strings.ToUpper(e.node.Data)), true
	case "value":
		if e.node.Data == "textarea" {
			return types.String(e.Text()), true
		}
		return types.String(getAttr(e.node, "value")), true
	}
	return types.Undefined(), false
}

// SetProperty assigns a named element property
func (e *Node) SetProperty(name string, value types.Value) error {
	if attr, ok := stringProps[name]; ok {
		e.SetAttr(attr, value.String())
		return nil
	}
	if boolProps[name] {
		attr := strings.ToLower(name)
		if value.Truthy() {
			e.SetAttr(attr, "")
		} else {
			e.RemoveAttr(attr)
		}
		return nil
	}

	switch name {
	case "innerHTML":
		return e.SetContent(value.String())
	case "textContent", "innerText":
		e.SetText(value.String())
		return nil
	case "value":
		if e.node.Data == "textarea" {
			e.SetText(value.String())
			return nil
		}
		e.SetAttr("value", value.String())
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
}
