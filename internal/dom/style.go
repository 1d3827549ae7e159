package dom

import (
	"fmt"
	"strings"
)

// cssProperties lists the style names a Node accepts, in kebab-case
var cssProperties = toSet(`
align-content align-items align-self animation background background-color
background-image background-position background-repeat background-size border
border-bottom border-collapse border-color border-left border-radius border-right
border-style border-top border-width bottom box-shadow box-sizing clear color
column-gap content cursor display fill filter flex flex-basis flex-direction
flex-grow flex-shrink flex-wrap float font font-family font-size font-style
font-weight gap grid grid-area grid-column grid-row grid-template-columns
grid-template-rows height justify-content justify-items left letter-spacing
line-height list-style margin margin-bottom margin-left margin-right margin-top
max-height max-width min-height min-width object-fit opacity order outline
overflow overflow-x overflow-y padding padding-bottom padding-left padding-right
padding-top pointer-events position resize right row-gap stroke text-align
text-decoration text-overflow text-shadow text-transform top transform transition
user-select vertical-align visibility white-space width word-break word-wrap z-index
`)

func toSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range strings.Fields(list) {
		set[name] = true
	}
	return set
}

// CSSName converts a camelCase style name to its kebab-case CSS form
func CSSName(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// IsStyleProperty reports whether name (camelCase or kebab-case) is a known style
func IsStyleProperty(name string) bool {
	css := CSSName(name)
	return cssProperties[css] || strings.HasPrefix(css, "--")
}

type declaration struct {
	name  string
	value string
}

func parseStyle(attr string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(attr, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		decls = append(decls, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return decls
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.name+": "+d.value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// Style returns the inline value of a style property
func (e *Node) Style(name string) string {
	css := CSSName(name)
	for _, d := range parseStyle(getAttr(e.node, "style")) {
		if d.name == css {
			return d.value
		}
	}
	return ""
}

// SetStyle sets an inline style property; an empty value removes it
func (e *Node) SetStyle(name, value string) error {
	if !IsStyleProperty(name) {
		return fmt.Errorf("%w: %s", ErrUnknownStyle, name)
	}
	css := CSSName(name)
	decls := parseStyle(getAttr(e.node, "style"))

	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.name == css {
			if value == "" || replaced {
				continue
			}
			d.value = value
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced && value != "" {
		out = append(out, declaration{name: css, value: value})
	}

	if styled := formatStyle(out); styled != "" {
		e.SetAttr("style", styled)
	} else {
		e.RemoveAttr("style")
	}
	return nil
}
