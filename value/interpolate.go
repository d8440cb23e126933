package value

// Interpolable reports whether values of t animate smoothly. Other types
// snap to their target.
func Interpolable(t Type) bool {
	return t == TypeNumber || t == TypeColor
}

// Interpolate returns the value at progress t between from and to. t is
// expected in [0,1] but easing curves may overshoot slightly.
func Interpolate(from, to Value, t float64) Value {
	if from.typ != to.typ {
		return to
	}
	switch to.typ {
	case TypeNumber:
		return Number(from.num + (to.num-from.num)*t)
	case TypeColor:
		a, _ := from.Color()
		b, _ := to.Color()
		return ColorValue(LerpColor(a, b, t))
	}
	return to
}
