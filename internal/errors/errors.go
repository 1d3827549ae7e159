package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the interpreter and its verbs
var (
	ErrAbandoned       = errors.New("execution abandoned")
	ErrUnknownEntry    = errors.New("unknown entry")
	ErrUnknownVerb     = errors.New("unknown verb")
	ErrUnknownShell    = errors.New("unknown shell")
	ErrNoMatch         = errors.New("selector matched no elements")
	ErrNestedShell     = errors.New("shell open inside a shell")
	ErrMalformed       = errors.New("malformed segment")
	ErrHostRejected    = errors.New("host rejected assignment")
	ErrMissingArgument = errors.New("missing argument")
)

// VerbError is raised when a verb callable fails or its future rejects.
// It abandons the remaining segments of the current execution.
type VerbError struct {
	Verb string
	Args []string
	Err  error
}

// Error implements the error interface
func (e *VerbError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("verb %q failed: %v", e.Verb, e.Err)
	}
	return fmt.Sprintf("verb %q failed with args [%s]: %v", e.Verb, strings.Join(e.Args, ", "), e.Err)
}

// Unwrap returns the underlying error
func (e *VerbError) Unwrap() error {
	return e.Err
}

// NewVerbError creates a new verb error
func NewVerbError(verb string, args []string, err error) *VerbError {
	return &VerbError{
		Verb: verb,
		Args: args,
		Err:  err,
	}
}

// SegmentError describes a problem with one segment of a pipeline script
type SegmentError struct {
	Message string
	Key     string // entry key the script belongs to
	Index   int    // zero-based segment position
	Segment string
	Err     error
}

// Error implements the error interface
func (e *SegmentError) Error() string {
	return fmt.Sprintf("%s: segment %d %q: %s", e.Key, e.Index+1, e.Segment, e.Message)
}

// Unwrap returns the underlying error
func (e *SegmentError) Unwrap() error {
	return e.Err
}

// FormatError renders the error with the segment highlighted
func (e *SegmentError) FormatError() string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("\033[31mError\033[0m: %s\n", e.Message))
	result.WriteString(fmt.Sprintf("  \033[36m--> %s:%d\033[0m\n", e.Key, e.Index+1))

	num := fmt.Sprintf("%d", e.Index+1)
	result.WriteString(fmt.Sprintf("   \033[34m%s\033[0m | %s\n", num, e.Segment))
	result.WriteString(fmt.Sprintf("   %s | \033[31m%s\033[0m\n", strings.Repeat(" ", len(num)), strings.Repeat("^", max(1, len(e.Segment)))))

	if suggestion := e.getSuggestion(); suggestion != "" {
		result.WriteString(fmt.Sprintf("   \033[33mHelp:\033[0m %s\n", suggestion))
	}

	return result.String()
}

// getSuggestion returns a hint for common mistakes
func (e *SegmentError) getSuggestion() string {
	seg := e.Segment
	switch {
	case strings.HasPrefix(seg, "+") && !strings.Contains(seg, ":"):
		return "Open a shell with '+targetId:shellName'"
	case strings.HasPrefix(seg, "&") && !strings.Contains(seg, ":"):
		return "Assign a variable with '&name:value'"
	case strings.HasPrefix(seg, "#") && !strings.Contains(seg, "."):
		return "Read a property with '#var:elementId.property'"
	case strings.Contains(seg, " "):
		return "Verb names cannot contain spaces; separate parameters with ':'"
	}
	return ""
}

// SegmentErrorList collects problems found while checking a script
type SegmentErrorList struct {
	Errors []*SegmentError
}

// Error implements the error interface
func (el *SegmentErrorList) Error() string {
	if len(el.Errors) == 0 {
		return "no errors"
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	var messages []string
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Add appends an error to the list
func (el *SegmentErrorList) Add(err *SegmentError) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if there are any errors
func (el *SegmentErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// FormatErrors formats all errors, limiting the output like a compiler would
func (el *SegmentErrorList) FormatErrors() string {
	if len(el.Errors) == 0 {
		return ""
	}

	var result strings.Builder

	maxErrors := 5
	toShow := el.Errors
	if len(toShow) > maxErrors {
		toShow = toShow[:maxErrors]
	}

	if len(el.Errors) == 1 {
		result.WriteString("Script error:\n\n")
	} else if len(el.Errors) <= maxErrors {
		result.WriteString(fmt.Sprintf("Script errors (%d):\n\n", len(el.Errors)))
	} else {
		result.WriteString(fmt.Sprintf("Script errors (showing first %d of %d):\n\n", maxErrors, len(el.Errors)))
	}

	for i, err := range toShow {
		if i > 0 {
			result.WriteString("\n")
		}
		result.WriteString(err.FormatError())
	}

	return result.String()
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
