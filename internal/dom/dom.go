// Package dom is the element tree the pipeline interpreter runs against.
//
// Host and Element describe the collaborator contract the interpreter needs
// (lookup, attribute, content, property and style access). Document is the
// concrete implementation backed by golang.org/x/net/html.
package dom

import (
	"errors"

	"github.com/phillarmonic/dotpipe/internal/types"
)

var (
	// ErrUnknownStyle is returned when a style name is not a CSS property
	ErrUnknownStyle = errors.New("unknown style property")
	// ErrUnknownProperty is returned when an element has no such property
	ErrUnknownProperty = errors.New("unknown element property")
)

// Host resolves identifiers and class names to elements
type Host interface {
	// ElementByID returns the element with the given id, or nil
	ElementByID(id string) Element
	// ElementsByClass returns all elements carrying class, in document order
	ElementsByClass(class string) []Element
	// ElementsWithAttr returns all elements carrying the attribute, in document order
	ElementsWithAttr(name string) []Element
}

// Element is a single addressable node of the host tree
type Element interface {
	ID() string
	Tag() string
	HasClass(class string) bool

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	// Content is the rendered inner markup
	Content() string
	SetContent(markup string) error

	Property(name string) (types.Value, bool)
	SetProperty(name string, value types.Value) error

	Style(name string) string
	SetStyle(name, value string) error
}
