package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// PathError is a property path that does not name a live property.
type PathError struct {
	Path string
	Msg  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %s", e.Path, e.Msg)
}

type segment struct {
	name  string
	index int
}

func parsePath(path string) ([]segment, error) {
	parts := strings.Split(path, ".")
	segs := make([]segment, len(parts))
	for i, p := range parts {
		s := segment{name: p, index: -1}
		if open := strings.IndexByte(p, '['); open >= 0 {
			if !strings.HasSuffix(p, "]") {
				return nil, &PathError{Path: path, Msg: "unterminated index"}
			}
			n, err := strconv.Atoi(p[open+1 : len(p)-1])
			if err != nil || n < 0 {
				return nil, &PathError{Path: path, Msg: "bad index"}
			}
			s = segment{name: p[:open], index: n}
		}
		if s.name == "" {
			return nil, &PathError{Path: path, Msg: "empty segment"}
		}
		segs[i] = s
	}
	return segs, nil
}

// lookup resolves path from the root instance. A segment naming the anchor
// of a dynamic region descends into one of its children: "list[2].color",
// or "popup.title" for the child of a conditional.
func (rt *Runtime) lookup(path string) (target, error) {
	segs, err := parsePath(path)
	if err != nil {
		return target{}, err
	}
	id := rt.root
	for {
		in, ok := rt.inst(id)
		if !ok {
			return target{}, &PathError{Path: path, Msg: "instance destroyed"}
		}
		if segs[0].index < 0 {
			if prop, fields, ok := in.comp.Resolve(names(segs)); ok {
				return target{cell: in.cells[prop], fields: fields}, nil
			}
		}

		anchor, ok := in.comp.Item(segs[0].name)
		if !ok {
			return target{}, &PathError{Path: path, Msg: fmt.Sprintf("no property or element %q", segs[0].name)}
		}
		r := in.region(anchor)
		if r == nil {
			return target{}, &PathError{Path: path, Msg: fmt.Sprintf("element %q has no property %q", segs[0].name, strings.Join(names(segs[1:]), "."))}
		}
		i := max(segs[0].index, 0)
		if i >= len(r.children) {
			return target{}, &PathError{Path: path, Msg: fmt.Sprintf("%s has %d instances", segs[0].name, len(r.children))}
		}
		if len(segs) == 1 {
			return target{}, &PathError{Path: path, Msg: "names an element, not a property"}
		}
		id, segs = r.children[i], segs[1:]
	}
}

func names(segs []segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.name
	}
	return out
}

// Get returns the current value of the property at path. Only an
// unresolvable path is an error; evaluation problems go to the diagnostic
// handler.
func (rt *Runtime) Get(path string) (value.Value, error) {
	rt.sync()
	t, err := rt.lookup(path)
	if err != nil {
		return value.Void, err
	}
	return fieldOf(rt.sys.Get(t.cell), t.fields)
}

// Set writes the property at path, detaching any binding it had.
func (rt *Runtime) Set(path string, v value.Value) error {
	rt.sync()
	t, err := rt.lookup(path)
	if err != nil {
		return err
	}
	if len(t.fields) > 0 {
		return &PathError{Path: path, Msg: "cannot assign to a field"}
	}
	rt.sys.Set(t.cell, v)
	return nil
}

// Advance moves the animation clock to now and returns the number of
// animations still running.
func (rt *Runtime) Advance(now time.Duration) int {
	rt.sync()
	return rt.sys.Advance(now)
}

type EventKind int

const (
	PointerDown EventKind = iota
	PointerUp
	Click
	KeyPress
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointer-down"
	case PointerUp:
		return "pointer-up"
	case Click:
		return "click"
	case KeyPress:
		return "key-press"
	}
	return "unknown"
}

func (k EventKind) signal() layout.Signal {
	switch k {
	case PointerDown:
		return layout.Pressed
	case PointerUp:
		return layout.Released
	case KeyPress:
		return layout.KeyPressed
	}
	return layout.Clicked
}

// Event is a pointer event at X, Y or a key press carrying Text.
type Event struct {
	Kind EventKind
	X, Y float64
	Text string
}

// DispatchInput delivers ev and runs the handlers it triggers. Pointer
// events go to the touch area under the pointer: one declaring a bool
// "pressed" property has it set on pointer down and cleared on pointer up,
// and one declaring "focused" takes the focus on pointer down. Key
// presses go to the focused item, with the text bound to the handler's
// "text" local. It reports whether an item received the event.
func (rt *Runtime) DispatchInput(ev Event) bool {
	if ev.Kind == KeyPress {
		rt.sync()
		ref, ok := rt.Focus()
		if !ok {
			return false
		}
		in, _ := rt.inst(ref.Instance)
		rt.runHandlers(ref.Instance, in.comp.Items[ref.Index].Element, layout.KeyPressed, []value.Value{value.String(ev.Text)})
		return true
	}

	hit, ok := rt.HitTest(ev.X, ev.Y)
	if !ok {
		return false
	}
	id := hit.Ref.Instance
	in, ok := rt.inst(id)
	if !ok {
		return false
	}

	if ev.Kind != Click {
		if p, ok := in.comp.Property(hit.Element, "pressed"); ok {
			rt.sys.Set(in.cells[p], value.Bool(ev.Kind == PointerDown))
		}
	}
	if ev.Kind == PointerDown {
		if _, ok := in.comp.Property(hit.Element, focusProperty); ok {
			rt.setFocus(hit.Ref)
		}
	}
	rt.runHandlers(id, hit.Element, ev.Kind.signal(), nil)
	return true
}

// runHandlers runs the handlers element of id declares for signal, with args
// bound to the signal's parameters, and returns how many ran. Handlers do
// not track dependencies; their failures go to the diagnostic handler.
func (rt *Runtime) runHandlers(id InstanceID, element string, signal layout.Signal, args []value.Value) int {
	in, ok := rt.inst(id)
	if !ok {
		return 0
	}
	comp := in.comp
	params, _ := comp.SignalParams(element, signal)
	vars := make(map[string]value.Value, len(params))
	for i, name := range params {
		if i < len(args) {
			vars[name] = args[i]
		} else {
			vars[name] = value.Void
		}
	}

	e := &env{rt: rt, id: id}
	ran := 0
	for i := range comp.Handlers {
		h := &comp.Handlers[i]
		if h.Element != element || h.Signal != signal {
			continue
		}
		ran++
		rt.sys.Untracked(func() {
			if _, err := expr.Eval(h.Node(), expr.WithLocals(e, vars)); err != nil {
				rt.sys.Report(props.Diagnostic{
					Kind: props.KindEvaluation,
					Name: element + "." + string(signal),
					Err:  err,
				})
			}
		})
	}
	return ran
}
