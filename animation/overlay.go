package animation

import (
	"time"

	"github.com/delaneyj/proptree/value"
)

// Animation is the declared behavior of an animated property.
type Animation struct {
	Duration time.Duration
	// Delay postpones the start of the interpolation; the overlay shows From
	// until it elapses.
	Delay  time.Duration
	Easing Curve
}

func (a Animation) curve() Curve {
	if a.Easing == nil {
		return Linear
	}
	return a.Easing
}

// Overlay masks a property's resting value while it moves from From to To.
// Times are offsets on the host tick clock.
type Overlay struct {
	From, To value.Value
	Start    time.Duration
	Anim     Animation
}

// Start begins an overlay at now.
func Start(anim Animation, from, to value.Value, now time.Duration) *Overlay {
	return &Overlay{From: from, To: to, Start: now, Anim: anim}
}

// Progress is the eased progress at now.
func (o *Overlay) Progress(now time.Duration) float64 {
	elapsed := now - o.Start - o.Anim.Delay
	if elapsed <= 0 {
		return 0
	}
	if o.Anim.Duration <= 0 || elapsed >= o.Anim.Duration {
		return 1
	}
	return o.Anim.curve()(float64(elapsed) / float64(o.Anim.Duration))
}

// Done reports whether the overlay has fully elapsed at now.
func (o *Overlay) Done(now time.Duration) bool {
	return now-o.Start >= o.Anim.Delay+o.Anim.Duration
}

// Sample returns the visible value at now.
func (o *Overlay) Sample(now time.Duration) value.Value {
	if o.Done(now) {
		return o.To
	}
	return value.Interpolate(o.From, o.To, o.Progress(now))
}
