package props

import (
	"time"

	"github.com/delaneyj/proptree/animation"
	"github.com/delaneyj/proptree/value"
)

// visible is the value a reader observes: the overlay sample while an
// animation runs, the resting value otherwise. A finished overlay is
// retired here.
func (s *System) visible(c Cell) value.Value {
	sl := &s.slots[c.index]
	if sl.overlay == nil {
		return sl.value
	}
	if sl.overlay.Done(s.now) {
		sl.overlay = nil
		s.animating.Remove(c)
		return sl.value
	}
	return sl.overlay.Sample(s.now)
}

// retarget starts an overlay towards next when c is animated. The overlay
// starts from whatever is visible right now, so a retrigger never jumps.
func (s *System) retarget(c Cell, next value.Value) {
	sl := &s.slots[c.index]
	if sl.anim == nil || !value.Interpolable(sl.typ) {
		return
	}
	// The first evaluation of a binding adopts its value directly.
	if sl.binding != nil && !sl.evaluated {
		return
	}
	from := s.visible(c)
	if value.Equal(from, next) {
		sl.overlay = nil
		s.animating.Remove(c)
		return
	}
	sl.overlay = animation.Start(*sl.anim, from, next, s.now)
	s.animating.Add(c)
}

// Advance moves the tick clock to now and resamples every running overlay:
// finished ones are retired (the resting value is the target exactly) and
// the dependents of every animated cell are marked dirty so they observe the
// new sample. It returns the number of overlays still running. The clock
// never moves backwards.
func (s *System) Advance(now time.Duration) int {
	if now > s.now {
		s.now = now
	}
	running := 0
	for _, c := range s.animating.ToSlice() {
		if !s.live(c) {
			s.animating.Remove(c)
			continue
		}
		sl := &s.slots[c.index]
		if sl.overlay == nil || sl.overlay.Done(s.now) {
			sl.overlay = nil
			s.animating.Remove(c)
		} else {
			running++
		}
		s.markDependents(c)
	}
	return running
}

// CancelAnimation drops the overlay of c; its resting value shows at once.
func (s *System) CancelAnimation(c Cell) {
	if !s.live(c) {
		return
	}
	sl := &s.slots[c.index]
	if sl.overlay == nil {
		return
	}
	sl.overlay = nil
	s.animating.Remove(c)
	s.markDependents(c)
}
