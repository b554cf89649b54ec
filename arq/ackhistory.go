package arq

import "time"

// ackRecord is one outstanding full ACK awaiting its ACK2 echo.
type ackRecord struct {
	ackSeqNo uint32
	sentAt   time.Time
	valid    bool
}

// AckHistory tracks outstanding full ACKs so that an echoed ACK2 can be
// turned into an RTT sample: Record stores the send time keyed by the
// ACK's own sequence number, Lookup consumes it on a matching ACK2.
// Capacity is bounded; the oldest outstanding record is evicted to make
// room for a new one, matching the bounded ring the sender side also
// uses to cap memory under a misbehaving or silent peer.
type AckHistory struct {
	records []ackRecord
	next    int
}

// NewAckHistory constructs an AckHistory with room for capacity
// outstanding full ACKs.
func NewAckHistory(capacity int) *AckHistory {
	return &AckHistory{records: make([]ackRecord, capacity)}
}

// Record stores ackSeqNo as sent at sentAt, evicting the oldest slot if
// the ring is full.
func (h *AckHistory) Record(ackSeqNo uint32, sentAt time.Time) {
	h.records[h.next] = ackRecord{ackSeqNo: ackSeqNo, sentAt: sentAt, valid: true}
	h.next = (h.next + 1) % len(h.records)
}

// Lookup consumes the record for ackSeqNo, if present, and returns the
// RTT sample it implies. The record is removed so a replayed ACK2
// cannot be used twice.
func (h *AckHistory) Lookup(ackSeqNo uint32, now time.Time) (time.Duration, bool) {
	for i := range h.records {
		if h.records[i].valid && h.records[i].ackSeqNo == ackSeqNo {
			rtt := now.Sub(h.records[i].sentAt)
			h.records[i] = ackRecord{}
			return rtt, true
		}
	}
	return 0, false
}

// Clear discards all outstanding records.
func (h *AckHistory) Clear() {
	for i := range h.records {
		h.records[i] = ackRecord{}
	}
}
