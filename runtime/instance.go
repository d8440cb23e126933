package runtime

import (
	"fmt"
	"strings"

	"github.com/delaneyj/proptree/expr"
	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// chain lists id and its enclosing instances, outermost first.
func (rt *Runtime) chain(id InstanceID) ([]InstanceID, []*layout.Component) {
	var ids []InstanceID
	var comps []*layout.Component
	for cur := id; cur.Valid(); {
		in, ok := rt.inst(cur)
		if !ok {
			break
		}
		ids = append(ids, cur)
		comps = append(comps, in.comp)
		cur = in.parent
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
		comps[i], comps[j] = comps[j], comps[i]
	}
	return ids, comps
}

type member struct {
	// pos is the position of the owning instance in the chain; the
	// instance being created is last.
	pos  int
	prop int
}

// instantiate creates an instance of comp inside parent. r and index are set
// for the children of a dynamic region.
func (rt *Runtime) instantiate(comp *layout.Component, parent InstanceID, anchor int, r *region, index int) InstanceID {
	id := rt.allocInstance()

	var parentScope props.Scope
	depth := 0
	if p, ok := rt.inst(parent); ok {
		parentScope = p.scope
		depth = p.depth + 1
	}
	scope := rt.sys.NewScope(parentScope)
	cells := make([]props.Cell, len(comp.Properties))

	in := &rt.instances[id.index]
	in.comp = comp
	in.parent = parent
	in.anchor = anchor
	in.depth = depth
	in.scope = scope
	in.cells = cells
	in.refs = map[*expr.Ref]target{}
	in.signals = map[*expr.Ref]signalTarget{}

	if r != nil && r.tmpl.Kind == layout.Repeater {
		in.index = rt.sys.NewCell(scope, "index", value.TypeNumber, value.Number(float64(index)))
		model := r.model
		in.model = rt.sys.NewBoundCell(scope, "model", value.TypeVoid, func() value.Value {
			return modelElement(rt.sys.Peek(model), index)
		})
	}

	ids, comps := rt.chain(id)
	local := len(ids) - 1
	cellsAt := func(pos int) []props.Cell {
		if pos == local {
			return cells
		}
		return rt.instances[ids[pos].index].cells
	}

	// Aliases: the canonical member is the one owned by the shallowest
	// instance, ties broken by declaration order.
	aliases := props.NewAliases[member]()
	for _, a := range comp.Aliases {
		var first member
		for j, m := range a.Members {
			pos, prop, _, _ := layout.ResolveIn(comps, strings.Split(m, "."))
			mb := member{pos: pos, prop: prop}
			aliases.Add(mb, comps[pos].Properties[prop].ValueType())
			if j == 0 {
				first = mb
				continue
			}
			aliases.Union(first, mb)
		}
	}
	canonicalOf := map[int]int{}
	driver := map[int]int{}
	for _, g := range aliases.Groups() {
		canon := g[0]
		for _, m := range g[1:] {
			if m.pos < canon.pos {
				canon = m
			}
		}
		if canon.pos != local {
			shared := cellsAt(canon.pos)[canon.prop]
			for _, m := range g {
				if m.pos == local {
					cells[m.prop] = shared
				}
			}
			continue
		}
		driven := -1
		if comp.Properties[canon.prop].BindingExpr() != nil {
			driven = canon.prop
		}
		for _, m := range g {
			if m != canon {
				canonicalOf[m.prop] = canon.prop
			}
			if driven < 0 && comp.Properties[m.prop].BindingExpr() != nil {
				driven = m.prop
			}
		}
		if driven >= 0 {
			driver[canon.prop] = driven
		}
	}

	owned := make([]bool, len(cells))
	for i := range comp.Properties {
		p := &comp.Properties[i]
		if cells[i].Valid() {
			continue
		}
		if _, ok := canonicalOf[i]; ok {
			continue
		}
		cells[i] = rt.sys.NewCell(scope, p.Key(), p.ValueType(), rt.initial(p))
		owned[i] = true
		if a := p.Anim(); a != nil {
			rt.sys.SetAnimation(cells[i], *a)
		}
	}
	for i, c := range canonicalOf {
		cells[i] = cells[c]
	}

	resolve := func(n expr.Node) {
		for _, ref := range expr.Refs(n) {
			pos, prop, fields, ok := layout.ResolveIn(comps, ref.Path)
			if !ok {
				continue
			}
			in.refs[ref] = target{cell: cellsAt(pos)[prop], fields: fields}
		}
	}
	for i := range comp.Properties {
		resolve(comp.Properties[i].BindingExpr())
	}
	for i := range comp.Templates {
		resolve(comp.Templates[i].Node())
	}
	for i := range comp.Handlers {
		n := comp.Handlers[i].Node()
		resolve(n)
		for _, e := range expr.Emits(n) {
			pos, sig, ok := layout.ResolveSignalIn(comps, e.Signal.Path)
			if !ok {
				continue
			}
			decl := &comps[pos].Signals[sig]
			in.signals[e.Signal] = signalTarget{id: ids[pos], element: decl.Element, signal: layout.Signal(decl.Name)}
		}
	}

	env := &env{rt: rt, id: id}
	for i := range comp.Properties {
		if !owned[i] {
			continue
		}
		src := i
		if d, ok := driver[i]; ok {
			src = d
		}
		if n := comp.Properties[src].BindingExpr(); n != nil {
			rt.sys.SetBinding(cells[i], rt.binding(cells[i], n, env))
		}
	}

	for i, item := range comp.Items {
		t := item.TemplateIndex()
		if t < 0 {
			continue
		}
		in.regions = append(in.regions, rt.newRegion(id, i, &comp.Templates[t], env))
	}
	return id
}

// initial evaluates the constant initial value of p, or its type's zero.
func (rt *Runtime) initial(p *layout.PropertyDecl) value.Value {
	n := p.InitialExpr()
	if n == nil {
		return value.Zero(p.ValueType())
	}
	v, err := expr.Eval(n, constEnv{})
	if err != nil {
		rt.sys.Report(props.Diagnostic{Kind: props.KindEvaluation, Name: p.Key(), Err: err})
		return value.Zero(p.ValueType())
	}
	return v
}

func (rt *Runtime) binding(c props.Cell, n expr.Node, e *env) props.Binding {
	return func() value.Value {
		v, err := expr.Eval(n, e)
		if err != nil {
			rt.report(props.KindEvaluation, c, err)
			return rt.sys.Peek(c)
		}
		return v
	}
}

// env evaluates expressions of one instance.
type env struct {
	rt *Runtime
	id InstanceID
}

func (e *env) target(ref *expr.Ref) (target, error) {
	in, ok := e.rt.inst(e.id)
	if !ok {
		return target{}, &props.StaleIndexError{Op: "resolve", Index: e.id.index, Gen: e.id.gen}
	}
	t, ok := in.refs[ref]
	if !ok {
		return target{}, &layout.UnresolvedError{Ref: strings.Join(ref.Path, ".")}
	}
	return t, nil
}

func (e *env) Load(ref *expr.Ref) (value.Value, error) {
	t, err := e.target(ref)
	if err != nil {
		return value.Void, err
	}
	return fieldOf(e.rt.sys.Get(t.cell), t.fields)
}

func (e *env) Store(ref *expr.Ref, v value.Value) error {
	t, err := e.target(ref)
	if err != nil {
		return err
	}
	if len(t.fields) > 0 {
		return &PathError{Path: strings.Join(ref.Path, "."), Msg: "cannot assign to a field"}
	}
	e.rt.sys.Set(t.cell, v)
	return nil
}

// repeated finds the nearest enclosing repeater child.
func (e *env) repeated() (*instance, bool) {
	for cur := e.id; cur.Valid(); {
		in, ok := e.rt.inst(cur)
		if !ok {
			return nil, false
		}
		if in.index.Valid() {
			return in, true
		}
		cur = in.parent
	}
	return nil, false
}

func (e *env) Index() (int, bool) {
	in, ok := e.repeated()
	if !ok {
		return 0, false
	}
	n, _ := e.rt.sys.Get(in.index).Number()
	return int(n), true
}

func (e *env) Model() (value.Value, bool) {
	in, ok := e.repeated()
	if !ok {
		return value.Void, false
	}
	return e.rt.sys.Get(in.model), true
}

// MaxEmitDepth bounds signals raised from handlers of raised signals.
const MaxEmitDepth = 32

// EmitDepthError is a chain of raised signals deeper than MaxEmitDepth,
// usually a handler that raises its own signal.
type EmitDepthError struct {
	Signal string
}

func (e *EmitDepthError) Error() string {
	return fmt.Sprintf("raising %s: signals nested deeper than %d", e.Signal, MaxEmitDepth)
}

func (e *env) Emit(ref *expr.Ref, args []value.Value) error {
	in, ok := e.rt.inst(e.id)
	if !ok {
		return &props.StaleIndexError{Op: "emit", Index: e.id.index, Gen: e.id.gen}
	}
	name := strings.Join(ref.Path, ".")
	t, ok := in.signals[ref]
	if !ok {
		return &layout.UnresolvedError{Ref: name}
	}
	if e.rt.emitting >= MaxEmitDepth {
		return &EmitDepthError{Signal: name}
	}
	e.rt.emitting++
	defer func() { e.rt.emitting-- }()
	e.rt.runHandlers(t.id, t.element, t.signal, args)
	return nil
}

func fieldOf(v value.Value, fields []string) (value.Value, error) {
	for i, f := range fields {
		if v.Type() != value.TypeObject {
			return value.Void, &PathError{
				Path: strings.Join(fields[:i+1], "."),
				Msg:  "field of " + v.Type().String(),
			}
		}
		v = v.Field(f)
	}
	return v, nil
}

// constEnv evaluates initial values, which never reference anything.
type constEnv struct{}

func (constEnv) Load(ref *expr.Ref) (value.Value, error) {
	return value.Void, &layout.UnresolvedError{Ref: strings.Join(ref.Path, ".")}
}

func (constEnv) Store(ref *expr.Ref, _ value.Value) error {
	return &layout.UnresolvedError{Ref: strings.Join(ref.Path, ".")}
}

func (constEnv) Index() (int, bool) { return 0, false }

func (constEnv) Model() (value.Value, bool) { return value.Void, false }

func (constEnv) Emit(ref *expr.Ref, _ []value.Value) error {
	return &layout.UnresolvedError{Ref: strings.Join(ref.Path, ".")}
}
