package pipeline

import (
	"regexp"
	"strings"
)

// SegmentKind classifies one pipeline segment
type SegmentKind int

const (
	Malformed SegmentKind = iota
	AttrWrite
	IndexedWrite
	ShellOpen
	ShellClose
	PropRead
	LiteralAssign
	PropWrite
	NopStore
	ContentSet
	VerbCall
)

// String returns the kind's name
func (k SegmentKind) String() string {
	switch k {
	case AttrWrite:
		return "attr-write"
	case IndexedWrite:
		return "indexed-write"
	case ShellOpen:
		return "shell-open"
	case ShellClose:
		return "shell-close"
	case PropRead:
		return "prop-read"
	case LiteralAssign:
		return "literal-assign"
	case PropWrite:
		return "prop-write"
	case NopStore:
		return "nop"
	case ContentSet:
		return "content-set"
	case VerbCall:
		return "verb-call"
	default:
		return "malformed"
	}
}

// Segment patterns in precedence order. The order matters: several shapes
// overlap and the first match wins.
var patterns = []struct {
	kind SegmentKind
	re   *regexp.Regexp
}{
	{AttrWrite, regexp.MustCompile(`^([#.$]?[A-Za-z0-9_\-]+)\[\s*([A-Za-z0-9_\-]+)\s*\]\s*:(.+)$`)},
	{IndexedWrite, regexp.MustCompile(`^([#.$]?[\w\-]+)\[(.*?)\]\.(text|style|[A-Za-z\-]+):(.+)$`)},
	{ShellOpen, regexp.MustCompile(`^\+\s*([A-Za-z0-9_\-]+):([A-Za-z0-9_]+)\s*$`)},
	{ShellClose, regexp.MustCompile(`^-\s*([A-Za-z0-9_]+)$`)},
	{PropRead, regexp.MustCompile(`^#([A-Za-z0-9_]+):([A-Za-z0-9_\-]+)\.([A-Za-z0-9_]+)$`)},
	{LiteralAssign, regexp.MustCompile(`^&([A-Za-z0-9_]+):(.+)$`)},
	{PropWrite, regexp.MustCompile(`^([#.$]?[\w\-]+)\.([A-Za-z\-]+):(.+)$`)},
	{NopStore, regexp.MustCompile(`^nop:([A-Za-z0-9_]+)$`)},
	{ContentSet, regexp.MustCompile(`^\$([A-Za-z0-9_\-]+)(?::(.+))?$`)},
	{VerbCall, regexp.MustCompile(`^([A-Za-z0-9_+\-]+):?(.*)$`)},
}

// defaultPattern matches the `!existing?default` right-hand side of a literal assignment
var defaultPattern = regexp.MustCompile(`^!([A-Za-z_][A-Za-z0-9_]*)\?(.+)$`)

// Split breaks a script into trimmed, non-empty segments
func Split(script string) []string {
	parts := strings.Split(script, "|")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if seg := strings.TrimSpace(part); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Match classifies an escaped segment and returns its submatches
func Match(seg string) (SegmentKind, []string) {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(seg); m != nil {
			return p.kind, m
		}
	}
	return Malformed, nil
}

// Classify returns the kind of a raw segment
func Classify(seg string) SegmentKind {
	kind, _ := Match(Escape(strings.TrimSpace(seg)))
	return kind
}

// VerbName returns the verb a raw segment calls, if it is a verb call
func VerbName(seg string) (string, bool) {
	kind, m := Match(Escape(strings.TrimSpace(seg)))
	if kind != VerbCall {
		return "", false
	}
	return m[1], true
}

// splitParams splits the parameter part of a verb call on ':'
func splitParams(s string) []string {
	if s == "" {
		return nil
	}
	params := strings.Split(s, ":")
	for i, p := range params {
		params[i] = strings.TrimSpace(p)
	}
	return params
}
