package arq

import (
	"time"

	"github.com/arqstream/arqstream/seq"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotMissing
	slotFilled
)

type bufSlot struct {
	state   slotState
	seq     seq.SeqNumber
	payload []byte
	arrival time.Time
	release time.Time // TSBPD release instant (Filled) or force-drop deadline (Missing)
}

// InsertOutcome classifies a successful ReceiveBuffer.Insert.
type InsertOutcome int

const (
	// Inserted is a fresh packet filling a previously Empty slot.
	Inserted InsertOutcome = iota
	// Recovered is a packet filling a slot that had been marked Missing.
	Recovered
)

// ReceiveBuffer is the fixed-capacity, sequence-indexed reorder window
// holding decrypted payloads pending release to the application. It is
// a circular array indexed by seq mod capacity — not a map or a heap —
// so insert, lookup, and the pop loop are all constant time with
// predictable memory.
type ReceiveBuffer struct {
	capacity int
	slots    []bufSlot
	clock    *Clock

	nextRelease seq.SeqNumber // low-water: lowest seq not yet released
	nextInOrder seq.SeqNumber // in-order receive boundary: highest contiguous Filled run + 1
	highWater   seq.SeqNumber // highest seq ever touched (filled or marked missing)
	seenAny     bool

	// DropTooLateGrace is how far past a Missing slot's inferred
	// deadline PopReady waits before force-dropping it. Zero means a
	// strict deadline (the REDESIGN default; spec.md's Open Question).
	DropTooLateGrace time.Duration
}

// NewReceiveBuffer constructs a ReceiveBuffer of the given capacity,
// with the low-water mark starting at initSeq.
func NewReceiveBuffer(capacity int, initSeq seq.SeqNumber, clock *Clock) *ReceiveBuffer {
	return &ReceiveBuffer{
		capacity:    capacity,
		slots:       make([]bufSlot, capacity),
		clock:       clock,
		nextRelease: initSeq,
		nextInOrder: initSeq,
		highWater:   initSeq.Decr(),
	}
}

func (b *ReceiveBuffer) index(s seq.SeqNumber) int {
	return int(s.Value() % uint32(b.capacity))
}

// NextRelease returns the current low-water mark: the lowest sequence
// not yet released to the application. This lags the in-order receive
// boundary whenever TSBPD is holding already-received packets for
// playout timing.
func (b *ReceiveBuffer) NextRelease() seq.SeqNumber { return b.nextRelease }

// InOrderBoundary returns the in-order receive boundary: one past the
// highest sequence number received as part of an unbroken contiguous
// run from the start of the window. Unlike NextRelease, this advances
// the instant a gap is filled, without waiting for TSBPD release — it
// is what a light or full ACK reports as received-up-to.
func (b *ReceiveBuffer) InOrderBoundary() seq.SeqNumber { return b.nextInOrder }

// advanceInOrder pushes nextInOrder forward across any contiguous run
// of Filled slots starting at its current position.
func (b *ReceiveBuffer) advanceInOrder() {
	for {
		idx := b.index(b.nextInOrder)
		if b.slots[idx].state != slotFilled || b.slots[idx].seq != b.nextInOrder {
			return
		}
		b.nextInOrder = b.nextInOrder.Incr()
	}
}

// syncInOrderAfterRelease pulls nextInOrder up to nextRelease if a pop
// or drop advanced the low-water mark past it — once data is released
// or declared dead, the in-order boundary can never trail it.
func (b *ReceiveBuffer) syncInOrderAfterRelease() {
	if seq.Distance(b.nextInOrder, b.nextRelease) > 0 {
		b.nextInOrder = b.nextRelease
	}
}

// HighWater returns the highest sequence number ever touched.
func (b *ReceiveBuffer) HighWater() seq.SeqNumber { return b.highWater }

// Insert places a decrypted payload into the buffer at seq, classified
// per §4.3: BufferFull, PacketTooEarly, PacketTooLate, and
// DiscardedDuplicate are returned as errors; a successful fill reports
// whether it was fresh (Inserted) or filled a previously-missing slot
// (Recovered).
func (b *ReceiveBuffer) Insert(s seq.SeqNumber, payload []byte, arrival time.Time, peerTS seq.TimeStamp) (InsertOutcome, error) {
	gap := seq.Distance(b.nextRelease, s)
	idx := b.index(s)

	if gap == int32(b.capacity) && b.slots[idx].state == slotFilled && b.slots[idx].seq != s {
		return 0, &DataPacketError{Kind: BufferFull}
	}
	if gap >= int32(b.capacity) {
		required := int(gap) - b.capacity + 1
		return 0, &DataPacketError{Kind: PacketTooEarly, BufferRequired: required}
	}
	if gap < 0 {
		return 0, &DataPacketError{Kind: PacketTooLate}
	}

	release := b.clock.TSBPDRelease(peerTS)

	if seq.Distance(b.highWater, s) > 0 {
		b.markMissingLocked(b.highWater.Incr(), s.Decr(), release)
		b.highWater = s
	} else if !b.seenAny {
		b.highWater = s
	}
	b.seenAny = true

	existing := &b.slots[idx]
	if existing.state == slotFilled {
		if existing.seq == s {
			return 0, &DataPacketError{Kind: DiscardedDuplicate}
		}
		// Distinct sequence occupying this slot inside the valid window
		// means low-water has not advanced past stale data — treat it
		// like the full-window collision case.
		return 0, &DataPacketError{Kind: BufferFull}
	}

	outcome := Inserted
	if existing.state == slotMissing {
		outcome = Recovered
	}

	*existing = bufSlot{
		state:   slotFilled,
		seq:     s,
		payload: payload,
		arrival: arrival,
		release: release,
	}
	b.advanceInOrder()
	return outcome, nil
}

// MarkMissing installs Missing markers for every sequence in [lo, hi],
// stamping deadline as the force-drop deadline for each. Used directly
// by the ARQ engine when the sender reports a drop, and internally by
// Insert on a forward jump.
func (b *ReceiveBuffer) MarkMissing(lo, hi seq.SeqNumber, deadline time.Time) {
	b.markMissingLocked(lo, hi, deadline)
}

func (b *ReceiveBuffer) markMissingLocked(lo, hi seq.SeqNumber, deadline time.Time) {
	if seq.Distance(lo, hi) < 0 {
		return // empty range
	}
	for s := lo; ; s = s.Incr() {
		idx := b.index(s)
		if b.slots[idx].state == slotEmpty {
			b.slots[idx] = bufSlot{state: slotMissing, seq: s, release: deadline}
		}
		if s == hi {
			break
		}
	}
}

// Delivered is one payload released by PopReady.
type Delivered struct {
	Seq     seq.SeqNumber
	Payload []byte
	Arrival time.Time
}

// PopReady releases every contiguous run of Filled slots starting at
// the low-water mark whose TSBPD release instant has passed, advancing
// next_release_seq past them. A Missing slot blocks release unless its
// deadline plus DropTooLateGrace has passed, in which case it is force
// dropped (and the number of forced drops is reported via dropped).
func (b *ReceiveBuffer) PopReady(now time.Time) (delivered []Delivered, dropped int) {
	for {
		idx := b.index(b.nextRelease)
		slot := &b.slots[idx]

		switch slot.state {
		case slotFilled:
			if slot.release.After(now) {
				b.syncInOrderAfterRelease()
				return delivered, dropped
			}
			delivered = append(delivered, Delivered{Seq: b.nextRelease, Payload: slot.payload, Arrival: slot.arrival})
			*slot = bufSlot{}
			b.nextRelease = b.nextRelease.Incr()
		case slotMissing:
			if !now.After(slot.release.Add(b.DropTooLateGrace)) {
				b.syncInOrderAfterRelease()
				return delivered, dropped
			}
			*slot = bufSlot{}
			dropped++
			b.nextRelease = b.nextRelease.Incr()
		default: // slotEmpty
			b.syncInOrderAfterRelease()
			return delivered, dropped
		}
	}
}

// IsFlushed reports whether the buffer holds no Filled slots.
func (b *ReceiveBuffer) IsFlushed() bool {
	for i := range b.slots {
		if b.slots[i].state == slotFilled {
			return false
		}
	}
	return true
}

// Clear empties every slot, releasing held payloads. Idempotent.
func (b *ReceiveBuffer) Clear() {
	for i := range b.slots {
		b.slots[i] = bufSlot{}
	}
}

// DropRange removes any Filled or Missing slots in [lo, hi] (a
// caller-initiated drop request), returning how many were discarded,
// then advances the low-water mark past any prefix that becomes fully
// contiguous and empty up to the old high-water.
func (b *ReceiveBuffer) DropRange(lo, hi seq.SeqNumber) (discarded int) {
	for s := lo; seq.Distance(s, hi) >= 0; s = s.Incr() {
		idx := b.index(s)
		if b.slots[idx].state != slotEmpty {
			b.slots[idx] = bufSlot{}
			discarded++
		}
		if s == hi {
			break
		}
	}

	for seq.Distance(b.nextRelease, b.highWater) >= 0 {
		idx := b.index(b.nextRelease)
		if b.slots[idx].state != slotEmpty {
			break
		}
		b.nextRelease = b.nextRelease.Incr()
	}
	b.syncInOrderAfterRelease()
	return discarded
}

// Capacity returns the fixed slot count.
func (b *ReceiveBuffer) Capacity() int { return b.capacity }

// Available returns how many more packets can be accepted before the
// window is exhausted (reported in full ACKs as the flow window).
func (b *ReceiveBuffer) Available() int {
	inFlight := int(seq.Distance(b.nextRelease, b.highWater)) + 1
	avail := b.capacity - inFlight
	if avail < 0 {
		avail = 0
	}
	return avail
}
