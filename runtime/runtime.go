// Package runtime instantiates a compiled layout description on top of a
// props.System and exposes the host interface: property access by path,
// animation ticks, input dispatch and a traversal of the live item tree.
//
// Component instances live in an arena addressed by InstanceID. Repeater and
// conditional regions create and destroy child instances as their model or
// condition changes; everything is single threaded and tick driven.
package runtime

import (
	"fmt"
	"log"
	"time"

	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
)

// InstanceID is a handle to a component instance. The zero InstanceID is
// invalid.
type InstanceID struct {
	index uint32
	gen   uint32
}

func (id InstanceID) Valid() bool { return id.gen != 0 }

func (id InstanceID) String() string { return fmt.Sprintf("instance(%d@%d)", id.index, id.gen) }

type instance struct {
	gen  uint32
	live bool

	comp   *layout.Component
	parent InstanceID
	// anchor is the item of the parent hosting this instance.
	anchor int
	depth  int
	scope  props.Scope

	// cells holds one cell per property declaration; aliased members share
	// the canonical member's cell.
	cells   []props.Cell
	refs    map[*expr.Ref]target
	signals map[*expr.Ref]signalTarget

	// index and model are set on repeater children only.
	index props.Cell
	model props.Cell

	// regions are ordered by anchor item.
	regions []*region
}

func (in *instance) region(anchor int) *region {
	for _, r := range in.regions {
		if r.anchor == anchor {
			return r
		}
	}
	return nil
}

type target struct {
	cell   props.Cell
	fields []string
}

// signalTarget is the instance and element a raised signal runs the
// handlers of.
type signalTarget struct {
	id      InstanceID
	element string
	signal  layout.Signal
}

type Runtime struct {
	desc *layout.Description
	sys  *props.System

	instances []instance
	free      []uint32
	root      InstanceID

	focus    ItemRef
	emitting int

	onError props.OnErrorFunc
}

type Option func(*Runtime)

// WithErrorHandler routes diagnostics to fn.
func WithErrorHandler(fn props.OnErrorFunc) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// WithLogger prints diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(rt *Runtime) {
		rt.onError = func(d props.Diagnostic) {
			l.Printf("proptree: %v", d)
		}
	}
}

// New validates desc and instantiates its root component.
func New(desc *layout.Description, opts ...Option) (*Runtime, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	rt := &Runtime{desc: desc}
	WithLogger(log.Default())(rt)
	for _, opt := range opts {
		opt(rt)
	}
	rt.sys = props.NewSystem(props.WithErrorHandler(rt.onError))

	comp, _ := desc.Lookup(desc.Root)
	rt.root = rt.instantiate(comp, InstanceID{}, -1, nil, -1)
	rt.sync()
	if comp.InitialFocus != "" {
		i, _ := comp.Item(comp.InitialFocus)
		if err := rt.SetFocus(ItemRef{Instance: rt.root, Index: i}); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// System exposes the underlying property engine.
func (rt *Runtime) System() *props.System {
	return rt.sys
}

// Root is the instance of the root component.
func (rt *Runtime) Root() InstanceID {
	return rt.root
}

func (rt *Runtime) inst(id InstanceID) (*instance, bool) {
	if !id.Valid() || int(id.index) >= len(rt.instances) {
		return nil, false
	}
	in := &rt.instances[id.index]
	if !in.live || in.gen != id.gen {
		return nil, false
	}
	return in, true
}

// Live reports whether id has not been destroyed.
func (rt *Runtime) Live(id InstanceID) bool {
	_, ok := rt.inst(id)
	return ok
}

func (rt *Runtime) allocInstance() InstanceID {
	var idx uint32
	if n := len(rt.free); n > 0 {
		idx = rt.free[n-1]
		rt.free = rt.free[:n-1]
	} else {
		idx = uint32(len(rt.instances))
		rt.instances = append(rt.instances, instance{})
	}
	gen := rt.instances[idx].gen + 1
	rt.instances[idx] = instance{gen: gen, live: true}
	return InstanceID{index: idx, gen: gen}
}

// destroy tears down id and every instance nested in it. The props scope
// of id contains the scopes of its descendants, so one DestroyScope call
// frees all their cells.
func (rt *Runtime) destroy(id InstanceID) {
	in, ok := rt.inst(id)
	if !ok {
		return
	}
	scope := in.scope
	rt.release(id)
	rt.sys.DestroyScope(scope)
}

func (rt *Runtime) release(id InstanceID) {
	in, ok := rt.inst(id)
	if !ok {
		return
	}
	for _, r := range in.regions {
		for _, child := range r.children {
			rt.release(child)
		}
	}
	in = &rt.instances[id.index]
	rt.instances[id.index] = instance{gen: in.gen}
	rt.free = append(rt.free, id.index)
}

// Close destroys every instance.
func (rt *Runtime) Close() {
	rt.destroy(rt.root)
}

type Stats struct {
	props.Stats
	Instances int
}

func (rt *Runtime) Stats() Stats {
	st := Stats{Stats: rt.sys.Stats()}
	for i := range rt.instances {
		if rt.instances[i].live {
			st.Instances++
		}
	}
	return st
}

// Now is the current tick time.
func (rt *Runtime) Now() time.Duration {
	return rt.sys.Now()
}

func (rt *Runtime) report(kind props.Kind, c props.Cell, err error) {
	rt.sys.Report(props.Diagnostic{Kind: kind, Cell: c, Err: err})
}
