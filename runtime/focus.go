package runtime

import (
	"github.com/delaneyj/proptree/props"
	"github.com/delaneyj/proptree/value"
)

// focusProperty is kept equal to whether the item holds the focus when the
// item declares it as a bool.
const focusProperty = "focused"

// Focus returns the item receiving key presses. The focus is lost when its
// instance is destroyed.
func (rt *Runtime) Focus() (ItemRef, bool) {
	if _, ok := rt.inst(rt.focus.Instance); !ok {
		rt.focus = ItemRef{}
		return ItemRef{}, false
	}
	return rt.focus, true
}

// SetFocus moves the focus to ref. A ref into a destroyed instance yields a
// *props.StaleIndexError and leaves the focus unchanged.
func (rt *Runtime) SetFocus(ref ItemRef) error {
	rt.sync()
	in, ok := rt.inst(ref.Instance)
	if !ok || ref.Index < 0 || ref.Index >= len(in.comp.Items) {
		return &props.StaleIndexError{Op: "focus", Index: ref.Instance.index, Gen: ref.Instance.gen}
	}
	rt.setFocus(ref)
	return nil
}

// ClearFocus drops the focus.
func (rt *Runtime) ClearFocus() {
	rt.setFocus(ItemRef{})
}

func (rt *Runtime) setFocus(ref ItemRef) {
	if prev, ok := rt.Focus(); ok {
		if prev == ref {
			return
		}
		rt.markFocus(prev, false)
	}
	rt.focus = ref
	if ref.Instance.Valid() {
		rt.markFocus(ref, true)
	}
}

func (rt *Runtime) markFocus(ref ItemRef, on bool) {
	in, ok := rt.inst(ref.Instance)
	if !ok {
		return
	}
	p, ok := in.comp.Property(in.comp.Items[ref.Index].Element, focusProperty)
	if !ok || in.comp.Properties[p].ValueType() != value.TypeBool {
		return
	}
	rt.sys.Set(in.cells[p], value.Bool(on))
}
