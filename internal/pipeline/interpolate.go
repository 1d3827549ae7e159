package pipeline

import (
	"strings"
)

// excl stands in for an escaped `\!` while a segment is being processed
const excl = "\uE000"

// Escape hides escaped exclamation marks from interpolation.
// A single `\!` becomes a literal `!`; `\\!` becomes a literal `\!`.
// A `\!` directly followed by another backslash is left untouched.
func Escape(raw string) string {
	if !strings.Contains(raw, `\!`) {
		return raw
	}

	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if strings.HasPrefix(raw[i:], `\\!`) {
			sb.WriteString(`\` + excl)
			i += 2
			continue
		}
		if strings.HasPrefix(raw[i:], `\!`) && !strings.HasPrefix(raw[i+2:], `\`) {
			sb.WriteString(excl)
			i++
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Unescape restores the marks hidden by Escape
func Unescape(s string) string {
	return strings.ReplaceAll(s, excl, "!")
}

// substitute replaces every `!identifier` not preceded by a backslash
func substitute(s string, vars *Store, render func(string) string) string {
	if !strings.Contains(s, "!") {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '!' || (i > 0 && s[i-1] == '\\') || i+1 >= len(s) || !isIdentStart(s[i+1]) {
			sb.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(s) && isIdentPart(s[j]) {
			j++
		}
		sb.WriteString(render(s[i+1 : j]))
		i = j - 1
	}
	return sb.String()
}

// Interpolate escapes raw, substitutes variables from vars and restores
// escaped marks. Unset variables render as the empty string.
func Interpolate(raw string, vars *Store) string {
	return Unescape(expand(Escape(raw), vars))
}

// expand substitutes variables in an already escaped string
func expand(s string, vars *Store) string {
	return substitute(s, vars, func(name string) string {
		return vars.Get(name).String()
	})
}

// expandWords substitutes `!name` only at the start of space-separated
// words, keeping any suffix; booleans render as ON/OFF.
func expandWords(s string, vars *Store) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if len(word) < 2 || word[0] != '!' || !isIdentStart(word[1]) {
			continue
		}
		j := 1
		for j < len(word) && isIdentPart(word[j]) {
			j++
		}
		words[i] = vars.Get(word[1:j]).Display() + word[j:]
	}
	return strings.Join(words, " ")
}

// isIdent reports whether s is a variable identifier
func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
