package runtime

import (
	"slices"

	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// ItemRef addresses an item by instance and index. It does not keep the
// instance alive.
type ItemRef struct {
	Instance InstanceID
	Index    int
}

// Item is a live item with its resolved geometry and properties. X and Y
// are absolute; the x, y, width and height properties are relative to the
// parent item and do not appear in Props.
type Item struct {
	Ref       ItemRef
	Kind      layout.ItemKind
	Component string
	Element   string
	Depth     int

	X, Y, Width, Height float64

	Props map[string]value.Value
}

// Contains reports whether the point lies inside the item's rectangle.
func (it Item) Contains(x, y float64) bool {
	return x >= it.X && y >= it.Y && x < it.X+it.Width && y < it.Y+it.Height
}

var geometry = map[string]bool{"x": true, "y": true, "width": true, "height": true}

// Walk visits every live item depth first, parents before children.
// Returning false from fn skips the children of that item. Repeater children
// follow their anchor in model order; a conditional contributes its child
// only while its condition holds.
func (rt *Runtime) Walk(fn func(Item) bool) {
	rt.sync()
	rt.walk(rt.root, 0, 0, 0, 0, fn)
}

func (rt *Runtime) walk(id InstanceID, idx int, ox, oy float64, depth int, fn func(Item) bool) {
	in, ok := rt.inst(id)
	if !ok {
		return
	}
	it := rt.item(in, id, idx, ox, oy, depth)
	if !fn(it) {
		return
	}
	if r := in.comp.Items[idx].Children; r != nil {
		for j := r.Start; j < r.Start+r.Count; j++ {
			rt.walk(id, j, it.X, it.Y, depth+1, fn)
		}
	}
	if reg := in.region(idx); reg != nil {
		for _, child := range slices.Clone(reg.children) {
			rt.walk(child, 0, it.X, it.Y, depth+1, fn)
		}
	}
}

// Items collects the traversal.
func (rt *Runtime) Items() []Item {
	var items []Item
	rt.Walk(func(it Item) bool {
		items = append(items, it)
		return true
	})
	return items
}

func (rt *Runtime) number(in *instance, element, name string) float64 {
	i, ok := in.comp.Property(element, name)
	if !ok {
		return 0
	}
	n, _ := rt.sys.Get(in.cells[i]).Number()
	return n
}

func (rt *Runtime) item(in *instance, id InstanceID, idx int, ox, oy float64, depth int) Item {
	node := in.comp.Items[idx]
	it := Item{
		Ref:       ItemRef{Instance: id, Index: idx},
		Kind:      node.Kind,
		Component: in.comp.Name,
		Element:   node.Element,
		Depth:     depth,
		X:         ox + rt.number(in, node.Element, "x"),
		Y:         oy + rt.number(in, node.Element, "y"),
		Width:     rt.number(in, node.Element, "width"),
		Height:    rt.number(in, node.Element, "height"),
		Props:     map[string]value.Value{},
	}
	for _, p := range in.comp.ElementProperties(node.Element) {
		name := in.comp.Properties[p].Name
		if geometry[name] {
			continue
		}
		it.Props[name] = rt.sys.Get(in.cells[p])
	}
	return it
}

// origin is the absolute position of the parent of item idx and the depth
// of the item.
func (rt *Runtime) origin(in *instance, idx int) (x, y float64, depth int) {
	for p := in.comp.Parent(idx); p >= 0; p = in.comp.Parent(p) {
		el := in.comp.Items[p].Element
		x += rt.number(in, el, "x")
		y += rt.number(in, el, "y")
		depth++
	}
	if parent, ok := rt.inst(in.parent); ok {
		ax, ay, ad := rt.origin(parent, in.anchor)
		el := parent.comp.Items[in.anchor].Element
		x += ax + rt.number(parent, el, "x")
		y += ay + rt.number(parent, el, "y")
		depth += ad + 1
	}
	return x, y, depth
}

// Resolve returns the item ref points at. A ref into a destroyed instance
// yields a *props.StaleIndexError, also reported as a fatal diagnostic.
func (rt *Runtime) Resolve(ref ItemRef) (Item, error) {
	rt.sync()
	in, ok := rt.inst(ref.Instance)
	if !ok || ref.Index < 0 || ref.Index >= len(in.comp.Items) {
		err := &props.StaleIndexError{Op: "resolve-item", Index: ref.Instance.index, Gen: ref.Instance.gen}
		if int(ref.Instance.index) < len(rt.instances) && rt.instances[ref.Instance.index].live {
			err.Want = rt.instances[ref.Instance.index].gen
		}
		rt.sys.Report(props.Diagnostic{Kind: props.KindStaleIndex, Severity: props.SeverityFatal, Err: err})
		return Item{}, err
	}
	x, y, depth := rt.origin(in, ref.Index)
	return rt.item(in, ref.Instance, ref.Index, x, y, depth), nil
}

// HitTest returns the topmost touch area containing the point: the last
// one in traversal order.
func (rt *Runtime) HitTest(x, y float64) (Item, bool) {
	var hit Item
	found := false
	rt.Walk(func(it Item) bool {
		if it.Kind == layout.KindTouchArea && it.Contains(x, y) {
			hit, found = it, true
		}
		return true
	})
	return hit, found
}
