// Package value holds the dynamically typed values stored in property cells.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Type uint8

const (
	TypeVoid Type = iota
	TypeNumber
	TypeString
	TypeBool
	TypeColor
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeColor:
		return "color"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "void"
	}
}

// ParseType returns the type named by s, as written in a compiled layout.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "void":
		return TypeVoid, nil
	case "number", "int", "float", "length", "duration":
		return TypeNumber, nil
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	case "color", "brush":
		return TypeColor, nil
	case "array", "model":
		return TypeArray, nil
	case "object":
		return TypeObject, nil
	}
	return TypeVoid, fmt.Errorf("unknown type %q", s)
}

// Value is an immutable tagged variant. The zero Value is Void.
type Value struct {
	typ Type
	num float64
	str string
	arr []Value
	obj map[string]Value
}

var Void = Value{}

func Number(n float64) Value { return Value{typ: TypeNumber, num: n} }

func String(s string) Value { return Value{typ: TypeString, str: s} }

func Bool(b bool) Value {
	v := Value{typ: TypeBool}
	if b {
		v.num = 1
	}
	return v
}

func ColorValue(c Color) Value { return Value{typ: TypeColor, num: float64(c)} }

func Array(items ...Value) Value {
	return Value{typ: TypeArray, arr: append([]Value(nil), items...)}
}

func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{typ: TypeObject, obj: cp}
}

// Zero is the initial value of a freshly declared cell of type t.
func Zero(t Type) Value {
	switch t {
	case TypeNumber:
		return Number(0)
	case TypeString:
		return String("")
	case TypeBool:
		return Bool(false)
	case TypeColor:
		return ColorValue(Transparent)
	case TypeArray:
		return Array()
	case TypeObject:
		return Object(nil)
	}
	return Void
}

func (v Value) Type() Type { return v.typ }

func (v Value) IsVoid() bool { return v.typ == TypeVoid }

func (v Value) Number() (float64, bool) {
	return v.num, v.typ == TypeNumber
}

func (v Value) Str() (string, bool) {
	return v.str, v.typ == TypeString
}

func (v Value) Bool() (bool, bool) {
	return v.num != 0, v.typ == TypeBool
}

func (v Value) Color() (Color, bool) {
	return Color(uint32(v.num)), v.typ == TypeColor
}

func (v Value) Len() int {
	switch v.typ {
	case TypeArray:
		return len(v.arr)
	case TypeObject:
		return len(v.obj)
	case TypeString:
		return len(v.str)
	}
	return 0
}

// At returns the i-th array element, or Void when out of range.
func (v Value) At(i int) Value {
	if v.typ != TypeArray || i < 0 || i >= len(v.arr) {
		return Void
	}
	return v.arr[i]
}

// Items returns a copy of the array elements.
func (v Value) Items() []Value {
	if v.typ != TypeArray {
		return nil
	}
	return append([]Value(nil), v.arr...)
}

// Field returns the named object field, or Void.
func (v Value) Field(name string) Value {
	if v.typ != TypeObject {
		return Void
	}
	return v.obj[name]
}

// Keys returns the object field names in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep structural equality.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeVoid:
		return true
	case TypeNumber:
		return a.num == b.num || (math.IsNaN(a.num) && math.IsNaN(b.num))
	case TypeBool, TypeColor:
		return a.num == b.num
	case TypeString:
		return a.str == b.str
	case TypeArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case TypeObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.typ {
	case TypeVoid:
		sb.WriteString("void")
	case TypeNumber:
		sb.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case TypeString:
		sb.WriteString(strconv.Quote(v.str))
	case TypeBool:
		sb.WriteString(strconv.FormatBool(v.num != 0))
	case TypeColor:
		c, _ := v.Color()
		sb.WriteString(c.String())
	case TypeArray:
		sb.WriteByte('[')
		for i, it := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.write(sb)
		}
		sb.WriteByte(']')
	case TypeObject:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.obj[k].write(sb)
		}
		sb.WriteByte('}')
	}
}

// Convert coerces v to t where the compiled layout allows an implicit
// conversion (number to string, number to color). ok is false otherwise.
// A TypeVoid target is untyped and accepts any value.
func Convert(v Value, t Type) (Value, bool) {
	if v.typ == t || t == TypeVoid {
		return v, true
	}
	switch {
	case v.typ == TypeNumber && t == TypeString:
		return String(strconv.FormatFloat(v.num, 'g', -1, 64)), true
	case v.typ == TypeNumber && t == TypeColor:
		return ColorValue(Color(uint32(v.num))), true
	case v.typ == TypeVoid:
		return Zero(t), true
	}
	return v, false
}
