package arq

import (
	"testing"
	"time"

	"github.com/arqstream/arqstream/seq"
)

func TestClockFirstSampleSetsEpoch(t *testing.T) {
	c := NewClock(120 * time.Millisecond)
	now := time.Unix(100, 0)
	if adj := c.Synchronize(now, seq.NewTimeStamp(0)); adj != nil {
		t.Fatalf("expected no adjustment on first sample, got %v", adj)
	}
	if !c.HasEpoch() {
		t.Fatalf("expected epoch to be set after first sample")
	}
}

func TestClockIgnoresSmallDrift(t *testing.T) {
	c := NewClock(120 * time.Millisecond)
	now := time.Unix(100, 0)
	c.Synchronize(now, seq.NewTimeStamp(0))

	// 1ms of apparent drift is within the default 5ms threshold.
	next := now.Add(time.Second).Add(time.Millisecond)
	adj := c.Synchronize(next, seq.NewTimeStamp(uint32(time.Second.Microseconds())))
	if adj != nil {
		t.Fatalf("expected no adjustment for sub-threshold drift, got %v", adj)
	}
}

func TestClockStepsPartwayOnLargeDrift(t *testing.T) {
	c := NewClock(120 * time.Millisecond)
	now := time.Unix(100, 0)
	c.Synchronize(now, seq.NewTimeStamp(0))
	beforeEpoch := c.epoch

	// 50ms of apparent drift exceeds the 5ms threshold.
	drift := 50 * time.Millisecond
	next := now.Add(time.Second).Add(drift)
	adj := c.Synchronize(next, seq.NewTimeStamp(uint32(time.Second.Microseconds())))
	if adj == nil {
		t.Fatalf("expected an adjustment for large drift")
	}
	moved := adj.NewEpoch.Sub(beforeEpoch)
	// Stepping 1/16 of the way should move a small, nonzero fraction of
	// the full drift, strictly less than the full drift itself.
	if moved <= 0 || moved >= drift {
		t.Fatalf("expected partial step between 0 and %v, moved %v", drift, moved)
	}
}

func TestClockTSBPDRelease(t *testing.T) {
	c := NewClock(120 * time.Millisecond)
	now := time.Unix(100, 0)
	c.Synchronize(now, seq.NewTimeStamp(0))

	release := c.TSBPDRelease(seq.NewTimeStamp(0))
	want := now.Add(120 * time.Millisecond)
	if !release.Equal(want) {
		t.Fatalf("expected release=%v, got %v", want, release)
	}
}
