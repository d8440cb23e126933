package props

import (
	"github.com/delaneyj/proptree/value"
)

// Set stores v in c. Any binding on c is removed for good. When the value
// changes, every cell reachable through dependency edges is marked dirty
// before Set returns; nothing is recomputed until the next Get.
func (s *System) Set(c Cell, v value.Value) {
	sl, ok := s.slot(c, "set")
	if !ok {
		return
	}
	if sl.evaluating {
		// A binding writing to itself is the cycle condition.
		s.report(Diagnostic{
			Kind: KindBindingCycle,
			Cell: c,
			Err:  &BindingCycleError{Path: []string{s.describe(c), s.describe(c)}},
		})
		return
	}

	converted, ok := value.Convert(v, sl.typ)
	if !ok {
		s.report(Diagnostic{
			Kind: KindTypeMismatch,
			Cell: c,
			Err:  &TypeMismatchError{Want: sl.typ, Got: v.Type()},
		})
		return
	}

	if sl.binding != nil {
		s.unlinkSources(c)
		sl = &s.slots[c.index]
		sl.binding = nil
	}
	sl.state = CacheClean
	sl.cycle = false
	sl.evaluated = true

	if value.Equal(sl.value, converted) {
		return
	}
	s.retarget(c, converted)
	s.slots[c.index].value = converted
	s.markDependents(c)
}

// MarkDirty forces the next Get of c to recompute it.
func (s *System) MarkDirty(c Cell) {
	if _, ok := s.slot(c, "mark-dirty"); !ok {
		return
	}
	s.stale(c, CacheDirty)
}

func (s *System) markDependents(c Cell) {
	for _, dep := range s.slots[c.index].dependents.ToSlice() {
		if s.live(dep) {
			s.stale(dep, CacheDirty)
		}
	}
}

// stale raises the cache state of c and marks its dependents for checking.
// A cell already at or above state is left alone, which bounds the walk by
// the number of cells.
func (s *System) stale(c Cell, state CacheState) {
	sl := &s.slots[c.index]
	if sl.state >= state {
		return
	}
	sl.state = state
	for _, dep := range sl.dependents.ToSlice() {
		if s.live(dep) {
			s.stale(dep, CacheCheck)
		}
	}
}
