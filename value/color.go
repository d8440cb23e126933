package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is packed ARGB.
type Color uint32

const (
	Transparent Color = 0
	Black       Color = 0xFF000000
	White       Color = 0xFFFFFFFF
)

func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) A() uint8 { return uint8(c >> 24) }
func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

func (c Color) String() string {
	if c.A() == 0xFF {
		return fmt.Sprintf("#%02x%02x%02x", c.R(), c.G(), c.B())
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.A(), c.R(), c.G(), c.B())
}

// ParseColor accepts #rgb, #rrggbb and #aarrggbb.
func ParseColor(s string) (Color, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return 0, fmt.Errorf("color %q: missing '#'", s)
	}
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		fallthrough
	case 6:
		hex = "ff" + hex
	case 8:
	default:
		return 0, fmt.Errorf("color %q: want 3, 6 or 8 hex digits", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(n), nil
}

func lerpChannel(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// LerpColor interpolates each ARGB channel independently.
func LerpColor(a, b Color, t float64) Color {
	return RGBA(
		lerpChannel(a.R(), b.R(), t),
		lerpChannel(a.G(), b.G(), t),
		lerpChannel(a.B(), b.B(), t),
		lerpChannel(a.A(), b.A(), t),
	)
}
