package props

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/proptree/value"
)

// Get returns the current value of c, recomputing it first if any of its
// dependencies changed. When called from inside a binding, c is recorded as
// a dependency of the cell being evaluated.
func (s *System) Get(c Cell) value.Value {
	if _, ok := s.slot(c, "get"); !ok {
		return value.Void
	}
	s.track(c)
	s.updateIfNecessary(c)

	// A cell that could not settle (cycle) keeps whoever read it unsettled
	// too, so the next read retries.
	if s.slots[c.index].state != CacheClean {
		if top := s.top(); top != nil && top.cell != c {
			top.frozen = true
		}
	}
	return s.visible(c)
}

// Peek returns the current value of c without refreshing it or recording a
// dependency.
func (s *System) Peek(c Cell) value.Value {
	if !s.live(c) {
		return value.Void
	}
	return s.visible(c)
}

func (s *System) top() *frame {
	if n := len(s.stack); n > 0 {
		return s.stack[n-1]
	}
	return nil
}

func (s *System) track(c Cell) {
	f := s.top()
	if f == nil || f.paused > 0 || f.cell == c {
		return
	}
	if f.seen.Contains(c) {
		return
	}
	f.seen.Add(c)
	f.reads = append(f.reads, c)
}

// PauseTracking stops recording dependencies for the binding currently
// being evaluated until the matching ResumeTracking.
func (s *System) PauseTracking() {
	f := s.top()
	if f != nil {
		f.paused++
	} else {
		s.rootPaused++
	}
	s.pauseStack = append(s.pauseStack, f)
}

func (s *System) ResumeTracking() {
	lastIdx := len(s.pauseStack) - 1
	if lastIdx < 0 {
		return
	}
	f := s.pauseStack[lastIdx]
	s.pauseStack = s.pauseStack[:lastIdx]
	if f != nil {
		f.paused--
	} else {
		s.rootPaused--
	}
}

// Untracked runs fn without recording the cells it reads.
func (s *System) Untracked(fn func()) {
	s.PauseTracking()
	defer s.ResumeTracking()
	fn()
}

// if dirty, or a source turns out to be dirty.
func (s *System) updateIfNecessary(c Cell) {
	sl := &s.slots[c.index]
	if sl.evaluating {
		s.reportCycle(c)
		return
	}

	// If we are potentially dirty, see if we have a source who has actually
	// changed value.
	if sl.state == CacheCheck {
		settled := true
		for _, src := range slices.Clone(sl.sources) {
			if !s.live(src) {
				continue
			}
			// can change our state
			s.updateIfNecessary(src)
			if s.slots[c.index].state == CacheDirty {
				// Stop here so sources we may no longer read are not updated.
				break
			}
			if s.slots[src.index].state != CacheClean {
				settled = false
			}
		}
		if sl = &s.slots[c.index]; sl.state == CacheCheck && settled {
			sl.state = CacheClean
		}
	}

	if s.slots[c.index].state == CacheDirty {
		s.update(c)
	}
}

// run the binding, updating the cached value and the recorded sources.
func (s *System) update(c Cell) {
	sl := &s.slots[c.index]
	binding := sl.binding
	if binding == nil {
		sl.state = CacheClean
		return
	}

	f := &frame{cell: c, seen: mapset.NewThreadUnsafeSet[Cell]()}
	depth := len(s.stack)
	s.stack = append(s.stack, f)
	sl.evaluating = true
	sl.state = CacheClean
	s.evaluations++

	next := binding()

	s.stack = s.stack[:depth]
	sl = &s.slots[c.index]
	sl.evaluating = false
	s.relink(c, f)

	if f.member {
		// Part of the cycle: keep the last good value and stay dirty so every
		// read retries until an external write breaks the cycle.
		sl.cycle = true
		sl.state = CacheDirty
		return
	}
	sl.cycle = false

	if converted, ok := value.Convert(next, sl.typ); ok {
		next = converted
	} else {
		s.report(Diagnostic{
			Kind: KindTypeMismatch,
			Cell: c,
			Err:  &TypeMismatchError{Want: sl.typ, Got: next.Type()},
		})
		next = sl.value
	}

	if !value.Equal(sl.value, next) {
		s.retarget(c, next)
		sl = &s.slots[c.index]
		sl.value = next
		// We've changed value, so mark our dependents as dirty so they'll
		// reevaluate.
		for _, dep := range sl.dependents.ToSlice() {
			if s.live(dep) {
				s.stale(dep, CacheDirty)
			}
		}
	}
	sl.evaluated = true
	if f.frozen {
		sl.state = CacheDirty
	}
}

// relink replaces the recorded sources of c with the reads of f.
func (s *System) relink(c Cell, f *frame) {
	sl := &s.slots[c.index]
	for _, src := range sl.sources {
		if !f.seen.Contains(src) && s.live(src) {
			s.slots[src.index].dependents.Remove(c)
		}
	}
	for _, src := range f.reads {
		if s.live(src) {
			s.slots[src.index].dependents.Add(c)
		}
	}
	sl.sources = f.reads
}

func (s *System) unlinkSources(c Cell) {
	sl := &s.slots[c.index]
	for _, src := range sl.sources {
		if s.live(src) {
			s.slots[src.index].dependents.Remove(c)
		}
	}
	sl.sources = nil
}

func (s *System) reportCycle(c Cell) {
	at := -1
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].cell == c {
			at = i
			break
		}
	}
	if at < 0 {
		return
	}
	path := make([]string, 0, len(s.stack)-at+1)
	for _, f := range s.stack[at:] {
		f.member = true
		path = append(path, s.describe(f.cell))
	}
	path = append(path, s.describe(c))
	s.slots[c.index].cycle = true
	s.report(Diagnostic{
		Kind: KindBindingCycle,
		Cell: c,
		Err:  &BindingCycleError{Path: path},
	})
}

func (s *System) describe(c Cell) string {
	if name := s.Name(c); name != "" {
		return name
	}
	return c.String()
}
