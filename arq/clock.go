package arq

import (
	"time"

	"github.com/arqstream/arqstream/seq"
)

// Adjustment records a corrective step applied to the TSBPD clock.
type Adjustment struct {
	PreviousEpoch time.Time
	NewEpoch      time.Time
	Observed      time.Time
}

// Clock maps the peer's wrapped microsecond TimeStamp onto local
// monotonic time and corrects for drift between the two clocks.
//
// The first observed sample pins epoch_local = now - peer_ts. Every
// later sample computes the epoch the new sample implies; if that
// disagrees with the tracked epoch by more than DriftThreshold, the
// tracked epoch is nudged a fraction (DriftStep) toward the observed
// value rather than snapped to it outright — jitter on a single
// sample shouldn't move the delivery deadline of every packet already
// buffered.
type Clock struct {
	Latency         time.Duration
	DriftThreshold  time.Duration
	DriftStep       float64 // fraction in (0, 1], default 1/16

	epoch    time.Time
	hasEpoch bool
}

// NewClock constructs a Clock with the given TSBPD latency and the
// package defaults for drift correction.
func NewClock(latency time.Duration) *Clock {
	return &Clock{
		Latency:        latency,
		DriftThreshold: 5 * time.Millisecond,
		DriftStep:      1.0 / 16.0,
	}
}

// Synchronize feeds one (local-arrival, peer-timestamp) sample into
// the clock. It returns the Adjustment made, if any.
func (c *Clock) Synchronize(now time.Time, peerTS seq.TimeStamp) *Adjustment {
	observedEpoch := now.Add(-peerTS.Duration())

	if !c.hasEpoch {
		c.epoch = observedEpoch
		c.hasEpoch = true
		return nil
	}

	drift := observedEpoch.Sub(c.epoch)
	if drift < 0 {
		drift = -drift
	}
	if drift <= c.DriftThreshold {
		return nil
	}

	step := c.DriftStep
	if step <= 0 || step > 1 {
		step = 1.0 / 16.0
	}
	delta := observedEpoch.Sub(c.epoch)
	newEpoch := c.epoch.Add(time.Duration(float64(delta) * step))

	adj := &Adjustment{PreviousEpoch: c.epoch, NewEpoch: newEpoch, Observed: observedEpoch}
	c.epoch = newEpoch
	return adj
}

// TSBPDRelease computes the local instant at which a packet stamped
// peerTS should be released to the application.
func (c *Clock) TSBPDRelease(peerTS seq.TimeStamp) time.Time {
	return c.epoch.Add(peerTS.Duration()).Add(c.Latency)
}

// HasEpoch reports whether at least one sample has been observed.
func (c *Clock) HasEpoch() bool {
	return c.hasEpoch
}
