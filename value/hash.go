package value

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Hash fingerprints v structurally. Equal values hash equally; object keys
// are visited in sorted order. Strings and keys are length-prefixed so
// adjacent strings cannot shift bytes between each other.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	v.hashInto(d)
	return d.Sum64()
}

func (v Value) hashInto(d *xxhash.Digest) {
	var buf [9]byte
	buf[0] = byte(v.typ)
	switch v.typ {
	case TypeNumber, TypeBool, TypeColor:
		n := v.num
		if math.IsNaN(n) {
			n = math.NaN()
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(n))
		d.Write(buf[:])
	case TypeString:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.str)))
		d.Write(buf[:])
		d.WriteString(v.str)
	case TypeArray:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.arr)))
		d.Write(buf[:])
		for _, it := range v.arr {
			it.hashInto(d)
		}
	case TypeObject:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.obj)))
		d.Write(buf[:])
		for _, k := range v.Keys() {
			writeLen(d, len(k))
			d.WriteString(k)
			v.obj[k].hashInto(d)
		}
	default:
		d.Write(buf[:1])
	}
}

func writeLen(d *xxhash.Digest, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	d.Write(buf[:])
}
