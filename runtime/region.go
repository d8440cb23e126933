package runtime

import (
	"fmt"
	"math"
	"slices"

	"github.com/delaneyj/proptree/layout"
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// region is the dynamic part of the tree under an anchor item: one child
// instance per model element for a repeater, zero or one for a conditional.
type region struct {
	owner  InstanceID
	anchor int
	tmpl   *layout.Template
	comp   *layout.Component

	// model holds the evaluated template expression in the owner's scope.
	model  props.Cell
	synced bool

	children []InstanceID
	// hashes fingerprint the model element each child was last fed.
	hashes []uint64
}

func (rt *Runtime) newRegion(owner InstanceID, anchor int, tmpl *layout.Template, e *env) *region {
	in, _ := rt.inst(owner)
	comp, _ := rt.desc.Lookup(tmpl.Component)
	r := &region{owner: owner, anchor: anchor, tmpl: tmpl, comp: comp}

	name := in.comp.Items[anchor].Element + ".model"
	t := value.TypeVoid
	if tmpl.Kind == layout.Conditional {
		name = in.comp.Items[anchor].Element + ".condition"
		t = value.TypeBool
	}
	r.model = rt.sys.NewCell(in.scope, name, t, value.Void)
	rt.sys.SetBinding(r.model, rt.binding(r.model, tmpl.Node(), e))
	return r
}

// sync brings every dynamic region in line with its model, outermost
// first, so regions created on the way are synchronized in the same pass.
func (rt *Runtime) sync() {
	rt.syncInstance(rt.root)
}

func (rt *Runtime) syncInstance(id InstanceID) {
	in, ok := rt.inst(id)
	if !ok {
		return
	}
	for _, r := range slices.Clone(in.regions) {
		rt.syncRegion(r)
		for _, child := range slices.Clone(r.children) {
			rt.syncInstance(child)
		}
	}
}

func (rt *Runtime) syncRegion(r *region) {
	if r.synced && !rt.sys.IsDirty(r.model) {
		return
	}
	r.synced = true
	m := rt.sys.Get(r.model)

	var elems []value.Value
	n := 0
	if r.tmpl.Kind == layout.Conditional {
		if b, _ := m.Bool(); b {
			n = 1
		}
	} else {
		var err error
		if elems, err = modelElements(m); err != nil {
			kind := props.KindEvaluation
			if _, ok := err.(*props.TypeMismatchError); ok {
				kind = props.KindTypeMismatch
			}
			rt.report(kind, r.model, err)
		}
		n = len(elems)
	}

	// Shrink from the end so retained children keep their index.
	for len(r.children) > n {
		last := len(r.children) - 1
		doomed := r.children[last]
		r.children = r.children[:last]
		r.hashes = r.hashes[:last]
		rt.destroy(doomed)
	}

	if elems != nil {
		for i, child := range r.children {
			h := elems[i].Hash()
			if h == r.hashes[i] {
				continue
			}
			r.hashes[i] = h
			if in, ok := rt.inst(child); ok {
				rt.sys.MarkDirty(in.model)
			}
		}
	}

	for i := len(r.children); i < n; i++ {
		child := rt.instantiate(r.comp, r.owner, r.anchor, r, i)
		r.children = append(r.children, child)
		var h uint64
		if elems != nil {
			h = elems[i].Hash()
		}
		r.hashes = append(r.hashes, h)
	}
}

// MaxModelCount bounds the number of children a numeric repeater model may
// ask for.
const MaxModelCount = 1 << 16

// ModelCountError is a numeric repeater model that is not a usable count.
type ModelCountError struct {
	Count float64
}

func (e *ModelCountError) Error() string {
	return fmt.Sprintf("repeater count %v is not a number between 0 and %d", e.Count, MaxModelCount)
}

// modelElements expands a repeater model: an array yields its elements, a
// number n yields 0..floor(n)-1 and a bool yields one element while true.
// A model that cannot be expanded yields no elements and an error.
func modelElements(m value.Value) ([]value.Value, error) {
	switch m.Type() {
	case value.TypeArray:
		return m.Items(), nil
	case value.TypeNumber:
		f, _ := m.Number()
		if math.IsNaN(f) || f < 0 || f > MaxModelCount {
			return []value.Value{}, &ModelCountError{Count: f}
		}
		elems := make([]value.Value, int(f))
		for i := range elems {
			elems[i] = value.Number(float64(i))
		}
		return elems, nil
	case value.TypeBool:
		if b, _ := m.Bool(); b {
			return []value.Value{value.Bool(true)}, nil
		}
		return []value.Value{}, nil
	case value.TypeVoid:
		return []value.Value{}, nil
	}
	return []value.Value{}, &props.TypeMismatchError{Want: value.TypeArray, Got: m.Type()}
}

func modelElement(m value.Value, i int) value.Value {
	switch m.Type() {
	case value.TypeArray:
		return m.At(i)
	case value.TypeNumber:
		return value.Number(float64(i))
	case value.TypeBool:
		return value.Bool(true)
	}
	return value.Void
}
