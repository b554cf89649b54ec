package seq

import "time"

// TimeStamp is the peer's 32-bit microsecond clock, relative to its
// socket start time. It wraps approximately every 71 minutes and must
// never be compared with host integer arithmetic directly.
type TimeStamp struct {
	us uint32
}

// NewTimeStamp constructs a TimeStamp from a raw microsecond count.
func NewTimeStamp(us uint32) TimeStamp {
	return TimeStamp{us}
}

// FromDuration converts an elapsed duration since socket start into a
// wrapped TimeStamp.
func FromDuration(d time.Duration) TimeStamp {
	return TimeStamp{uint32(d / time.Microsecond)}
}

// Micros returns the raw microsecond count.
func (t TimeStamp) Micros() uint32 {
	return t.us
}

// Duration interprets the TimeStamp as a duration since socket start.
func (t TimeStamp) Duration() time.Duration {
	return time.Duration(t.us) * time.Microsecond
}

// Since returns t minus earlier, accounting for a single wraparound.
// Used to measure elapsed time between two peer timestamps no more
// than one wrap apart.
func (t TimeStamp) Since(earlier TimeStamp) time.Duration {
	d := t.us - earlier.us // wraps naturally in uint32 arithmetic
	return time.Duration(d) * time.Microsecond
}

// Add returns t advanced by d, wrapping at 2^32 microseconds.
func (t TimeStamp) Add(d time.Duration) TimeStamp {
	return TimeStamp{t.us + uint32(d/time.Microsecond)}
}
