package arq

import (
	"sort"
	"time"

	"github.com/arqstream/arqstream/seq"
)

// lossRange is a disjoint, inclusive [Lo, Hi] span of sequence numbers
// believed lost. Ranges in LossHistory never touch or overlap; adjacent
// or overlapping insertions are coalesced.
type lossRange struct {
	Lo, Hi  seq.SeqNumber
	lastNAK time.Time
}

// LossHistory tracks outstanding gaps reported to the sender via NAK,
// as a small sorted list of disjoint ranges rather than a per-sequence
// set. Real loss bursts are short and few at any one time, so a sorted
// slice with binary search gives the same asymptotics as a heap
// without the bookkeeping container/heap demands for a disjoint-range
// invariant a heap doesn't help maintain.
type LossHistory struct {
	ranges []lossRange

	// NAKReportInterval is how often a still-outstanding range is
	// re-reported by DueForNAK.
	NAKReportInterval time.Duration
}

// NewLossHistory constructs an empty LossHistory with the given
// periodic NAK re-send interval.
func NewLossHistory(nakInterval time.Duration) *LossHistory {
	return &LossHistory{NAKReportInterval: nakInterval}
}

// searchIndex returns the index of the first range whose Hi is >= s
// (in circular-distance terms relative to an arbitrary anchor), using
// the lowest range's Lo as the anchor so comparisons stay monotonic
// for the lifetime of a single call.
func (h *LossHistory) searchIndex(anchor, s seq.SeqNumber) int {
	key := seq.Distance(anchor, s)
	return sort.Search(len(h.ranges), func(i int) bool {
		return seq.Distance(anchor, h.ranges[i].Hi) >= key
	})
}

// AddRange records [lo, hi] as newly lost, merging with any adjacent
// or overlapping existing ranges.
func (h *LossHistory) AddRange(lo, hi seq.SeqNumber, now time.Time) {
	if len(h.ranges) == 0 {
		h.ranges = []lossRange{{Lo: lo, Hi: hi, lastNAK: now}}
		return
	}
	anchor := h.ranges[0].Lo
	i := h.searchIndex(anchor, lo)

	// Walk left while the previous range touches or overlaps lo-1.
	for i > 0 && seq.Distance(lo.Decr(), h.ranges[i-1].Hi) >= 0 {
		i--
	}

	newLo, newHi := lo, hi
	start := i
	end := i
	for end < len(h.ranges) && seq.Distance(newHi.Incr(), h.ranges[end].Lo) <= 0 {
		if seq.Distance(h.ranges[end].Lo, newLo) > 0 {
			newLo = h.ranges[end].Lo
		}
		if seq.Distance(newHi, h.ranges[end].Hi) > 0 {
			newHi = h.ranges[end].Hi
		}
		end++
	}

	merged := lossRange{Lo: newLo, Hi: newHi, lastNAK: now}
	tail := append([]lossRange(nil), h.ranges[end:]...)
	h.ranges = append(h.ranges[:start], merged)
	h.ranges = append(h.ranges, tail...)
}

// Remove clears sequence s from the loss history, e.g. once a data
// packet fills that slot. Splits a range if s falls strictly inside
// it. Reports whether s was found.
func (h *LossHistory) Remove(s seq.SeqNumber) bool {
	for i, r := range h.ranges {
		if !seq.InRange(r.Lo, r.Hi, s) {
			continue
		}
		switch {
		case r.Lo == s && r.Hi == s:
			h.ranges = append(h.ranges[:i], h.ranges[i+1:]...)
		case r.Lo == s:
			h.ranges[i].Lo = s.Incr()
		case r.Hi == s:
			h.ranges[i].Hi = s.Decr()
		default:
			left := lossRange{Lo: r.Lo, Hi: s.Decr(), lastNAK: r.lastNAK}
			right := lossRange{Lo: s.Incr(), Hi: r.Hi, lastNAK: r.lastNAK}
			h.ranges = append(h.ranges[:i], append([]lossRange{left, right}, h.ranges[i+1:]...)...)
		}
		return true
	}
	return false
}

// RemoveRange clears every sequence in [lo, hi], e.g. on a drop
// request that makes the gap moot.
func (h *LossHistory) RemoveRange(lo, hi seq.SeqNumber) {
	var kept []lossRange
	for _, r := range h.ranges {
		if seq.Distance(r.Lo, hi) < 0 || seq.Distance(lo, r.Hi) < 0 {
			kept = append(kept, r)
			continue
		}
		if seq.Distance(lo, r.Lo) < 0 {
			kept = append(kept, lossRange{Lo: r.Lo, Hi: lo.Decr(), lastNAK: r.lastNAK})
		}
		if seq.Distance(r.Hi, hi) < 0 {
			kept = append(kept, lossRange{Lo: hi.Incr(), Hi: r.Hi, lastNAK: r.lastNAK})
		}
	}
	h.ranges = kept
}

// Ranges returns the current disjoint lost ranges in ascending order.
func (h *LossHistory) Ranges() [][2]seq.SeqNumber {
	out := make([][2]seq.SeqNumber, len(h.ranges))
	for i, r := range h.ranges {
		out[i] = [2]seq.SeqNumber{r.Lo, r.Hi}
	}
	return out
}

// IsEmpty reports whether no loss is currently outstanding.
func (h *LossHistory) IsEmpty() bool {
	return len(h.ranges) == 0
}

// DueForNAK returns every range whose last report is older than
// max(rttMean, NAKReportInterval), stamping them as reported at now.
// The floor rises with RTT so a slow link doesn't get re-sent NAKs
// faster than a round trip can possibly act on them.
func (h *LossHistory) DueForNAK(now time.Time, rttMean time.Duration) [][2]seq.SeqNumber {
	interval := h.NAKReportInterval
	if rttMean > interval {
		interval = rttMean
	}
	var due [][2]seq.SeqNumber
	for i := range h.ranges {
		if now.Sub(h.ranges[i].lastNAK) >= interval {
			due = append(due, [2]seq.SeqNumber{h.ranges[i].Lo, h.ranges[i].Hi})
			h.ranges[i].lastNAK = now
		}
	}
	return due
}

// Clear discards all tracked loss.
func (h *LossHistory) Clear() {
	h.ranges = nil
}
