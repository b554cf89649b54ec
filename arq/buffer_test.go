package arq

import (
	"errors"
	"testing"
	"time"

	"github.com/arqstream/arqstream/seq"
)

func testBuffer(t *testing.T, capacity int) (*ReceiveBuffer, *Clock, time.Time) {
	t.Helper()
	base := time.Unix(0, 0)
	clock := NewClock(120 * time.Millisecond)
	clock.Synchronize(base, seq.NewTimeStamp(0))
	return NewReceiveBuffer(capacity, seq.New(100), clock), clock, base
}

func TestBufferDuplicateDiscarded(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	_, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0))
	var dpErr *DataPacketError
	if !errors.As(err, &dpErr) || dpErr.Kind != DiscardedDuplicate {
		t.Fatalf("expected DiscardedDuplicate, got %v", err)
	}
}

func TestBufferMarkMissingOnForwardJump(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := buf.Insert(seq.New(103), []byte("d"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	outcome, err := buf.Insert(seq.New(102), []byte("c"), base, seq.NewTimeStamp(0))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if outcome != Recovered {
		t.Fatalf("expected Recovered, got %v", outcome)
	}
}

func TestBufferPopReadyRespectsDeadline(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	delivered, _ := buf.PopReady(base.Add(10 * time.Millisecond))
	if len(delivered) != 0 {
		t.Fatalf("expected no delivery before tsbpd deadline, got %d", len(delivered))
	}
	delivered, _ = buf.PopReady(base.Add(121 * time.Millisecond))
	if len(delivered) != 1 {
		t.Fatalf("expected delivery after tsbpd deadline, got %d", len(delivered))
	}
}

func TestBufferForceDropsMissingPastGrace(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	buf.DropTooLateGrace = 0
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := buf.Insert(seq.New(102), []byte("c"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// seq 101 is Missing with deadline tsbpd(0)+latency. Past that, it
	// should be force-dropped so release can continue.
	delivered, dropped := buf.PopReady(base.Add(500 * time.Millisecond))
	if dropped != 1 {
		t.Fatalf("expected 1 forced drop, got %d", dropped)
	}
	if len(delivered) != 2 {
		t.Fatalf("expected seq 100 and 102 delivered, got %d", len(delivered))
	}
}

func TestBufferTooEarlyReportsBufferRequired(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	_, err := buf.Insert(seq.New(108), []byte("x"), base, seq.NewTimeStamp(0))
	var dpErr *DataPacketError
	if !errors.As(err, &dpErr) || dpErr.Kind != PacketTooEarly {
		t.Fatalf("expected PacketTooEarly, got %v", err)
	}
	if dpErr.BufferRequired != 1 {
		t.Fatalf("expected buffer_required=1, got %d", dpErr.BufferRequired)
	}
}

func TestBufferInOrderBoundaryLeadsRelease(t *testing.T) {
	buf, _, base := testBuffer(t, 256)
	for i := 0; i < 64; i++ {
		s := seq.New(uint32(100 + i))
		if _, err := buf.Insert(s, []byte("x"), base, seq.NewTimeStamp(0)); err != nil {
			t.Fatalf("seq %d: unexpected error %v", s.Value(), err)
		}
	}
	if buf.InOrderBoundary().Value() != 164 {
		t.Fatalf("expected in-order boundary 164, got %d", buf.InOrderBoundary().Value())
	}
	if buf.NextRelease().Value() != 100 {
		t.Fatalf("expected release low-water to still lag at 100, got %d", buf.NextRelease().Value())
	}
}

func TestBufferInOrderBoundaryBlockedByGap(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := buf.Insert(seq.New(103), []byte("d"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if buf.InOrderBoundary().Value() != 101 {
		t.Fatalf("expected boundary to stall at the gap, got %d", buf.InOrderBoundary().Value())
	}
	if _, err := buf.Insert(seq.New(101), []byte("b"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := buf.Insert(seq.New(102), []byte("c"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if buf.InOrderBoundary().Value() != 104 {
		t.Fatalf("expected boundary to catch up past the filled gap, got %d", buf.InOrderBoundary().Value())
	}
}

func TestBufferIsFlushed(t *testing.T) {
	buf, _, base := testBuffer(t, 8)
	if !buf.IsFlushed() {
		t.Fatalf("expected empty buffer to be flushed")
	}
	if _, err := buf.Insert(seq.New(100), []byte("a"), base, seq.NewTimeStamp(0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if buf.IsFlushed() {
		t.Fatalf("expected non-empty buffer to not be flushed")
	}
	buf.Clear()
	if !buf.IsFlushed() {
		t.Fatalf("expected cleared buffer to be flushed")
	}
}
