// Package animation provides easing curves and the time-bounded overlays that
// animated properties show while moving towards a new value.
package animation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Curve maps linear progress in [0, 1] to eased progress.
type Curve func(t float64) float64

// Linear returns t unchanged.
func Linear(t float64) float64 {
	return t
}

// Ease is equivalent to CSS ease.
var Ease = CubicBezier(0.25, 0.1, 0.25, 1.0)

// EaseIn is equivalent to CSS ease-in.
var EaseIn = CubicBezier(0.42, 0.0, 1.0, 1.0)

// EaseOut is equivalent to CSS ease-out.
var EaseOut = CubicBezier(0.0, 0.0, 0.58, 1.0)

// EaseInOut is equivalent to CSS ease-in-out.
var EaseInOut = CubicBezier(0.42, 0.0, 0.58, 1.0)

// CubicBezier returns a curve matching CSS cubic-bezier(x1, y1, x2, y2).
// The curve starts at (0,0) and ends at (1,1).
func CubicBezier(x1, y1, x2, y2 float64) Curve {
	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}

		u := t
		// Newton-Raphson converges quickly for most values.
		for range 8 {
			x := sampleCurve(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				return sampleCurve(y1, y2, clampUnit(u))
			}
			dx := sampleCurveDerivative(x1, x2, u)
			if math.Abs(dx) < 1e-7 {
				break
			}
			u -= x / dx
		}

		// Bisection keeps the solution inside [0,1] when Newton stalls.
		lo, hi := 0.0, 1.0
		u = clampUnit(u)
		for range 20 {
			x := sampleCurve(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				break
			}
			if x > 0 {
				hi = u
			} else {
				lo = u
			}
			u = (lo + hi) * 0.5
		}
		return sampleCurve(y1, y2, u)
	}
}

func sampleCurve(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func sampleCurveDerivative(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// ParseCurve resolves an easing name as found in a compiled layout:
// linear, ease, ease-in, ease-out, ease-in-out or cubic-bezier(a, b, c, d).
// An empty name is linear.
func ParseCurve(name string) (Curve, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "", "linear":
		return Linear, nil
	case "ease":
		return Ease, nil
	case "ease-in":
		return EaseIn, nil
	case "ease-out":
		return EaseOut, nil
	case "ease-in-out":
		return EaseInOut, nil
	}

	args, ok := strings.CutPrefix(name, "cubic-bezier(")
	if !ok || !strings.HasSuffix(args, ")") {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	parts := strings.Split(strings.TrimSuffix(args, ")"), ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("easing %q: cubic-bezier takes 4 arguments", name)
	}
	var p [4]float64
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("easing %q: %w", name, err)
		}
		p[i] = f
	}
	if p[0] < 0 || p[0] > 1 || p[2] < 0 || p[2] > 1 {
		return nil, fmt.Errorf("easing %q: x control points must be in [0,1]", name)
	}
	return CubicBezier(p[0], p[1], p[2], p[3]), nil
}
