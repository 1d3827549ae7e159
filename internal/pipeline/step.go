package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/phillarmonic/dotpipe/internal/dom"
	dperrors "github.com/phillarmonic/dotpipe/internal/errors"
	"github.com/phillarmonic/dotpipe/internal/selector"
	"github.com/phillarmonic/dotpipe/internal/types"
)

// outcome tells the driver how to continue after a segment
type outcome struct {
	abandon error
	await   Result
}

type handler func(x *Execution, ctx context.Context, m []string) outcome

// handlers pairs each segment kind with the code that applies it
var handlers = map[SegmentKind]handler{
	AttrWrite:     (*Execution).writeAttr,
	IndexedWrite:  (*Execution).writeIndexed,
	ShellOpen:     (*Execution).openShell,
	ShellClose:    (*Execution).closeShell,
	PropRead:      (*Execution).readProp,
	LiteralAssign: (*Execution).assign,
	PropWrite:     (*Execution).writeProp,
	NopStore:      (*Execution).nop,
	ContentSet:    (*Execution).setContent,
	VerbCall:      (*Execution).callVerb,
}

// step applies one segment in the active scope
func (x *Execution) step(ctx context.Context, seg string) outcome {
	kind, m := Match(Escape(seg))
	h, ok := handlers[kind]
	if !ok {
		x.in.logger.Warn("dropping malformed segment", "key", x.entry.Key, "segment", seg)
		return outcome{}
	}
	return h(x, ctx, m)
}

func (x *Execution) vars() *Store {
	return x.scope.Vars()
}

// interpolate expands an escaped right-hand side in the active scope
func (x *Execution) interpolate(raw string) string {
	return Unescape(expand(raw, x.vars()))
}

func (x *Execution) miss(msg string, args ...any) {
	x.in.logger.Warn(msg, append([]any{"key", x.entry.Key, "scope", x.scope.Name()}, args...)...)
}

// |selector[attr]:value
func (x *Execution) writeAttr(_ context.Context, m []string) outcome {
	token, attr, raw := m[1], m[2], m[3]

	remove := false
	value := ""
	if strings.HasPrefix(raw, "!") && isIdent(raw[1:]) && !x.vars().Has(raw[1:]) {
		remove = true
	} else {
		value = x.interpolate(raw)
	}

	elems := selector.Resolve(x.in.host, token, "")
	if len(elems) == 0 {
		x.miss("selector matched no elements", "selector", token, "error", dperrors.ErrNoMatch)
	}
	for _, el := range elems {
		if remove {
			el.RemoveAttr(attr)
		} else {
			el.SetAttr(attr, value)
		}
	}

	if remove {
		x.current = types.Undefined()
	} else {
		x.current = types.String(value)
	}
	return outcome{}
}

// |selector[index].kind:value
func (x *Execution) writeIndexed(_ context.Context, m []string) outcome {
	token, index, kind, raw := m[1], m[2], m[3], m[4]
	value := x.interpolate(raw)

	elems := selector.Resolve(x.in.host, token, index)
	if len(elems) == 0 {
		x.miss("selector matched no elements", "selector", token, "index", index, "error", dperrors.ErrNoMatch)
		x.current = types.Undefined()
		return outcome{}
	}
	for _, el := range elems {
		x.write(el, kind, value)
	}
	x.current = types.String(value)
	return outcome{}
}

// |selector.prop:value
func (x *Execution) writeProp(_ context.Context, m []string) outcome {
	token, prop, raw := m[1], m[2], m[3]
	value := x.interpolate(raw)

	elems := selector.Resolve(x.in.host, token, "")
	if len(elems) == 0 {
		x.miss("selector not found", "selector", token, "error", dperrors.ErrNoMatch)
		return outcome{}
	}
	for _, el := range elems {
		x.write(el, prop, value)
	}
	x.current = types.String(value)
	return outcome{}
}

// write applies a property write through the style, property, attribute
// fallback chain. "text" and "style" overwrite the element's content.
func (x *Execution) write(el dom.Element, kind, value string) {
	if kind == "text" || kind == "style" {
		if err := el.SetContent(value); err != nil {
			x.miss("content write failed", "element", el, "error", fmt.Errorf("%w: %w", dperrors.ErrHostRejected, err))
		}
		return
	}

	styleErr := el.SetStyle(kind, value)
	if styleErr == nil {
		return
	}
	propErr := el.SetProperty(kind, types.Parse(value))
	if propErr == nil {
		return
	}
	x.in.logger.Debug("falling back to attribute", "element", el, "name", kind,
		"style_error", styleErr, "property_error", propErr)
	el.SetAttr(kind, value)
}

// |+target:name hands the rest of the script to a shell
func (x *Execution) openShell(_ context.Context, m []string) outcome {
	target, name := m[1], m[2]
	if x.shell != nil {
		x.miss("ignoring shell open inside a shell", "shell", name, "error", dperrors.ErrNestedShell)
		return outcome{}
	}

	// a shell closed earlier in this execution is merged before reopening
	x.commit(name)

	sh, reused := x.in.shells.Open(target, name, x.segments[x.pos:], x.entry)
	x.in.logger.Debug("opened shell", "key", x.entry.Key, "shell", name, "target", target, "reused", reused)

	x.shell = sh
	x.scope = sh
	x.segments = sh.Segments()
	x.pos = 0
	x.current = types.Undefined()
	return outcome{}
}

// |-name closes a shell. The shell leaves the arena at once; its store is
// merged into the parent at the next suspension, reopen or termination,
// skipping names the parent wrote after the close. Following segments run
// in the parent's scope.
func (x *Execution) closeShell(_ context.Context, m []string) outcome {
	name := m[1]
	sh, ok := x.in.shells.Detach(name, x.entry)
	if !ok {
		x.miss("tried to close unknown shell", "shell", name, "error", dperrors.ErrUnknownShell)
		return outcome{}
	}
	x.closing = append(x.closing, pendingClose{shell: sh, mark: x.entry.Vars().Revision()})
	if x.shell == sh {
		x.shell = nil
		x.scope = x.entry
	}
	return outcome{}
}

// pendingClose is a closed shell whose store is not merged yet
type pendingClose struct {
	shell *Shell
	mark  uint64
}

// commit merges pending closes into the entry store, all of them when name
// is empty. The loop lock must be held.
func (x *Execution) commit(name string) {
	if x.entry == nil {
		return
	}
	kept := x.closing[:0]
	for _, p := range x.closing {
		if name != "" && p.shell.Name() != name {
			kept = append(kept, p)
			continue
		}
		skipped := x.entry.Vars().MergeSince(p.shell.Vars(), p.mark)
		x.in.logger.Debug("closed shell", "key", x.entry.Key, "shell", p.shell.Name(), "kept_parent", skipped)
	}
	x.closing = kept
}

// |#var:elementId.prop
func (x *Execution) readProp(_ context.Context, m []string) outcome {
	name, id, prop := m[1], m[2], m[3]

	v := types.Undefined()
	if el := x.in.host.ElementByID(id); el != nil {
		if got, ok := el.Property(prop); ok {
			v = got
		}
	} else {
		x.miss("element not found", "id", id, "error", dperrors.ErrNoMatch)
	}
	x.vars().Set(name, v)
	x.current = v
	return outcome{}
}

// |&var:value and |&var:!existing?default
func (x *Execution) assign(_ context.Context, m []string) outcome {
	name, raw := m[1], m[2]
	vars := x.vars()

	if dm := defaultPattern.FindStringSubmatch(raw); dm != nil {
		existing, def := dm[1], dm[2]
		if !vars.Has(existing) {
			vars.Set(existing, types.Parse(Unescape(def)))
		}
		x.current = vars.Get(existing)
		return outcome{}
	}

	v := types.Parse(x.interpolate(raw))
	vars.Set(name, v)
	x.current = v
	return outcome{}
}

// |nop:var stores the running value
func (x *Execution) nop(_ context.Context, m []string) outcome {
	x.vars().Set(m[1], x.current)
	return outcome{}
}

// |$id and |$id:text
func (x *Execution) setContent(_ context.Context, m []string) outcome {
	id, text := m[1], m[2]
	el := x.in.host.ElementByID(id)
	if el == nil {
		x.miss("element not found", "id", id, "error", dperrors.ErrNoMatch)
		return outcome{}
	}

	var content string
	if text == "" {
		content = x.current.Display()
	} else {
		content = Unescape(expandWords(text, x.vars()))
	}
	if err := el.SetContent(content); err != nil {
		x.miss("content write failed", "element", el, "error", fmt.Errorf("%w: %w", dperrors.ErrHostRejected, err))
	}
	return outcome{}
}

// |verb:param:param
func (x *Execution) callVerb(ctx context.Context, m []string) outcome {
	name := m[1]
	params := splitParams(m[2])

	args := make([]types.Value, len(params))
	raw := make([]string, len(params))
	for i, p := range params {
		raw[i] = Unescape(p)
		if strings.HasPrefix(p, "!") {
			args[i] = x.vars().Get(p[1:])
		} else {
			args[i] = types.String(raw[i])
		}
	}

	verb, ok := x.in.verbs.Lookup(name)
	if !ok {
		x.miss("unknown verb", "verb", name, "error", dperrors.ErrUnknownVerb)
		return outcome{}
	}

	inv := &Invocation{
		Context: ctx,
		Name:    name,
		Args:    args,
		Raw:     raw,
		Scope:   x.scope,
		Trigger: x.trigger,
		Verbs:   x.in.verbs,
		Globals: x.in.globals,
		Logger:  x.in.logger.With("verb", name),
	}

	res := Invoke(verb, inv)
	if res.Pending() {
		return outcome{await: res}
	}

	v, err := res.settle(res.value, res.err)
	if err != nil {
		x.in.logger.Error("verb failed", "key", x.entry.Key, "verb", name, "args", raw, "error", err)
		return outcome{abandon: dperrors.NewVerbError(name, raw, err)}
	}
	x.current = v
	return outcome{}
}

// Invoke calls a verb, turning a panic into a failure
func Invoke(verb Verb, inv *Invocation) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail(fmt.Errorf("panic: %v", r))
		}
	}()
	return verb(inv)
}

// verbParts extracts the verb name and raw parameters of a segment
func verbParts(seg string) (string, []string) {
	kind, m := Match(Escape(seg))
	if kind != VerbCall {
		return seg, nil
	}
	params := splitParams(m[2])
	for i, p := range params {
		params[i] = Unescape(p)
	}
	return m[1], params
}
