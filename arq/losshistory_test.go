package arq

import (
	"testing"
	"time"

	"github.com/arqstream/arqstream/seq"
)

func TestLossHistoryCoalescesAdjacentRanges(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(10), seq.New(12), now)
	h.AddRange(seq.New(13), seq.New(15), now)

	ranges := h.Ranges()
	if len(ranges) != 1 {
		t.Fatalf("expected coalesced single range, got %v", ranges)
	}
	if ranges[0][0].Value() != 10 || ranges[0][1].Value() != 15 {
		t.Fatalf("unexpected merged range %v", ranges[0])
	}
}

func TestLossHistoryRemoveSplitsRange(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(10), seq.New(15), now)

	if !h.Remove(seq.New(12)) {
		t.Fatalf("expected remove to find seq 12")
	}
	ranges := h.Ranges()
	if len(ranges) != 2 {
		t.Fatalf("expected split into two ranges, got %v", ranges)
	}
	if ranges[0][0].Value() != 10 || ranges[0][1].Value() != 11 {
		t.Fatalf("unexpected left range %v", ranges[0])
	}
	if ranges[1][0].Value() != 13 || ranges[1][1].Value() != 15 {
		t.Fatalf("unexpected right range %v", ranges[1])
	}
}

func TestLossHistoryAddThenRemoveAllIsEmpty(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(100), seq.New(102), now)
	for _, s := range []uint32{100, 101, 102} {
		if !h.Remove(seq.New(s)) {
			t.Fatalf("expected remove to find seq %d", s)
		}
	}
	if !h.IsEmpty() {
		t.Fatalf("expected loss history empty after removing every element")
	}
}

func TestLossHistoryDueForNAKRespectsInterval(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(10), seq.New(10), now)

	if due := h.DueForNAK(now, 0); len(due) != 1 {
		t.Fatalf("expected immediate first report, got %v", due)
	}
	if due := h.DueForNAK(now.Add(5*time.Millisecond), 0); len(due) != 0 {
		t.Fatalf("expected no re-report before interval elapses, got %v", due)
	}
	if due := h.DueForNAK(now.Add(21*time.Millisecond), 0); len(due) != 1 {
		t.Fatalf("expected re-report after interval elapses, got %v", due)
	}
}

func TestLossHistoryDueForNAKFloorsOnRTT(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(10), seq.New(10), now)

	if due := h.DueForNAK(now, 0); len(due) != 1 {
		t.Fatalf("expected immediate first report, got %v", due)
	}
	// rtt_mean (50ms) exceeds NAKReportInterval (20ms), so it sets the floor.
	if due := h.DueForNAK(now.Add(21*time.Millisecond), 50*time.Millisecond); len(due) != 0 {
		t.Fatalf("expected rtt-scaled floor to suppress re-report, got %v", due)
	}
	if due := h.DueForNAK(now.Add(51*time.Millisecond), 50*time.Millisecond); len(due) != 1 {
		t.Fatalf("expected re-report once rtt-scaled floor elapses, got %v", due)
	}
}

func TestLossHistoryRemoveRange(t *testing.T) {
	h := NewLossHistory(20 * time.Millisecond)
	now := time.Unix(0, 0)
	h.AddRange(seq.New(10), seq.New(20), now)
	h.RemoveRange(seq.New(12), seq.New(15))

	ranges := h.Ranges()
	if len(ranges) != 2 {
		t.Fatalf("expected two remaining ranges, got %v", ranges)
	}
	if ranges[0][0].Value() != 10 || ranges[0][1].Value() != 11 {
		t.Fatalf("unexpected left remainder %v", ranges[0])
	}
	if ranges[1][0].Value() != 16 || ranges[1][1].Value() != 20 {
		t.Fatalf("unexpected right remainder %v", ranges[1])
	}
}
