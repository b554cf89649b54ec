// Package seq implements modular arithmetic over the 31-bit sequence
// numbers and 32-bit microsecond timestamps used on the wire.
package seq

// SeqNumber is a 31-bit unsigned sequence number that wraps around.
// The top bit is always zero; wire encoders are responsible for any
// additional flag bits (e.g. a compressed-loss-list range marker)
// that share the same word.
type SeqNumber struct {
	v uint32
}

const seqMask = 0x7FFFFFFF
const seqSignBit = 0x40000000

// New constructs a SeqNumber, masking off any bits above bit 30.
func New(v uint32) SeqNumber {
	return SeqNumber{v & seqMask}
}

// Value returns the raw 31-bit value.
func (s SeqNumber) Value() uint32 {
	return s.v
}

// Add returns the sequence number n positions ahead (or behind, for
// negative n) of s, wrapping at 2^31.
func (s SeqNumber) Add(n int32) SeqNumber {
	return SeqNumber{(s.v + uint32(n)) & seqMask}
}

// Incr returns s+1.
func (s SeqNumber) Incr() SeqNumber {
	return s.Add(1)
}

// Decr returns s-1.
func (s SeqNumber) Decr() SeqNumber {
	return s.Add(-1)
}

// Distance returns the signed distance from a to b on the 31-bit
// circle, in the range [-2^30, 2^30). A positive result means a comes
// before b (a is earlier).
func Distance(a, b SeqNumber) int32 {
	d := (b.v - a.v) & seqMask
	if d&seqSignBit != 0 {
		d |= 0x80000000
	}
	return int32(d)
}

// Cmp reports whether a is earlier than, equal to, or later than b on
// the sequence circle: -1, 0, or 1 respectively.
func Cmp(a, b SeqNumber) int {
	switch d := Distance(a, b); {
	case d > 0:
		return -1
	case d < 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether a is strictly earlier than b.
func Before(a, b SeqNumber) bool {
	return Distance(a, b) > 0
}

// InRange reports whether seq falls in [lo, hi] on the sequence
// circle, treating the range as the short arc from lo to hi.
func InRange(lo, hi, seq SeqNumber) bool {
	return Distance(lo, seq) >= 0 && Distance(seq, hi) >= 0
}
