package arq

import (
	"time"

	"github.com/arqstream/arqstream/seq"
	"github.com/arqstream/arqstream/wire"
)

// ActionKind classifies what HandleDataPacket accomplished.
type ActionKind int

const (
	// Received is an in-order or gap-filling packet with no loss or
	// light-ACK event attached.
	Received ActionKind = iota
	// ReceivedWithLoss is a forward jump that opened a new gap.
	ReceivedWithLoss
	// ReceivedWithLightAck is the Nth packet since the last light ACK
	// that opened no new gap (in-order arrivals and gap fills alike),
	// where N is the configured threshold.
	ReceivedWithLightAck
)

// DataPacketAction is the classification HandleDataPacket returns on
// success, carrying whatever detail the caller needs to react.
type DataPacketAction struct {
	Kind      ActionKind
	Lrsn      seq.SeqNumber // in-order receive boundary at the time of this action
	Recovered bool
	LossList  [][2]seq.SeqNumber // ReceivedWithLoss only
}

// FullAck is the body of a periodic full ACK, as returned by
// OnFullAckEvent.
type FullAck struct {
	AckSeqNo           uint32
	AckedUpTo          seq.SeqNumber
	RttMean            time.Duration
	RttVariance        time.Duration
	AvailableBuffer    int
	PktRecvRate        uint32
	EstimatedBandwidth uint32
}

// Config collects the tunables the ARQ engine needs beyond its
// collaborators' own defaults.
type Config struct {
	LightAckThreshold int           // packets between light ACKs, default 64
	NAKInterval       time.Duration // floor on NAK re-send spacing, default 20ms
	AckHistorySize    int           // default 16
	BufferCapacity    int
	TSBPDLatency      time.Duration
	DropTooLateGrace  time.Duration
	ClockDriftStep    float64
	ClockDriftThresh  time.Duration
}

// DefaultConfig returns the package defaults named in the component
// design: a 64-packet light-ACK cadence, a 20ms NAK floor, 1/16 clock
// drift step with a 5ms threshold, and a strict (zero-grace) drop
// deadline.
func DefaultConfig() Config {
	return Config{
		LightAckThreshold: 64,
		NAKInterval:       20 * time.Millisecond,
		AckHistorySize:    16,
		BufferCapacity:    8192,
		TSBPDLatency:      120 * time.Millisecond,
		DropTooLateGrace:  0,
		ClockDriftStep:    1.0 / 16.0,
		ClockDriftThresh:  5 * time.Millisecond,
	}
}

// rateSample is one arrival-time observation used to estimate the
// receive packet rate and link bandwidth reported in a full ACK.
type rateSample struct {
	at   time.Time
	size int
}

// Engine is the receiver-side ARQ state owner: it composes the
// ReceiveBuffer, LossHistory, AckHistory, and Clock and implements the
// five public operations plus the accessors named in the component
// design. No method suspends; every call is a synchronous transform of
// state driven by a caller-supplied now.
type Engine struct {
	cfg Config

	buffer *ReceiveBuffer
	loss   *LossHistory
	acks   *AckHistory
	clock  *Clock

	highestReceived  seq.SeqNumber
	seenAny          bool
	lastFullAckedSeq seq.SeqNumber
	hasFullAcked     bool
	lightAckCounter  int
	fullAckCounter   uint32

	rttMean     time.Duration
	rttVariance time.Duration

	rateSamples []rateSample
}

// NewEngine constructs an Engine for a freshly handshaked connection,
// with the receive window starting at initSeq.
func NewEngine(cfg Config, initSeq seq.SeqNumber) *Engine {
	clock := NewClock(cfg.TSBPDLatency)
	if cfg.ClockDriftStep > 0 {
		clock.DriftStep = cfg.ClockDriftStep
	}
	if cfg.ClockDriftThresh > 0 {
		clock.DriftThreshold = cfg.ClockDriftThresh
	}
	buffer := NewReceiveBuffer(cfg.BufferCapacity, initSeq, clock)
	buffer.DropTooLateGrace = cfg.DropTooLateGrace
	loss := NewLossHistory(cfg.NAKInterval)
	acks := NewAckHistory(cfg.AckHistorySize)

	return &Engine{
		cfg:             cfg,
		buffer:          buffer,
		loss:            loss,
		acks:            acks,
		clock:           clock,
		highestReceived: initSeq.Decr(),
	}
}

// SynchronizeClock feeds one TSBPD sample into the clock, per §4.2.
func (e *Engine) SynchronizeClock(now time.Time, peerTS seq.TimeStamp) *Adjustment {
	return e.clock.Synchronize(now, peerTS)
}

// RxAcknowledgedTime returns the local release instant the given peer
// timestamp maps to under the current clock epoch.
func (e *Engine) RxAcknowledgedTime(peerTS seq.TimeStamp) time.Time {
	return e.clock.TSBPDRelease(peerTS)
}

// IsFlushed reports whether the receive buffer holds no Filled slots.
func (e *Engine) IsFlushed() bool {
	return e.buffer.IsFlushed()
}

// Clear drops all ARQ state: buffer contents, loss history, and ACK
// history. Idempotent; subsequent calls to any method remain safe.
func (e *Engine) Clear() {
	e.buffer.Clear()
	e.loss.Clear()
	e.acks.Clear()
	e.rateSamples = nil
}

// HandleDataPacket inserts an already-decrypted data packet into the
// receive window and classifies the result per §4.7.
func (e *Engine) HandleDataPacket(now time.Time, pkt *wire.DataPacket) (DataPacketAction, error) {
	s := pkt.Seq

	prevHigh := e.highestReceived
	wasForwardJump := !e.seenAny || seq.Distance(prevHigh, s) > 0

	outcome, err := e.buffer.Insert(s, pkt.Payload, now, pkt.Timestamp)
	if err != nil {
		return DataPacketAction{}, err
	}

	e.rateSamples = append(e.rateSamples, rateSample{at: now, size: len(pkt.Payload)})
	const maxRateSamples = 64
	if len(e.rateSamples) > maxRateSamples {
		e.rateSamples = e.rateSamples[len(e.rateSamples)-maxRateSamples:]
	}

	if !e.seenAny || seq.Distance(e.highestReceived, s) > 0 {
		e.highestReceived = s
	}
	e.seenAny = true

	if outcome == Recovered {
		e.loss.Remove(s)
	}

	if wasForwardJump && seq.Distance(prevHigh, s) > 1 {
		lo := prevHigh.Incr()
		hi := s.Decr()
		e.loss.AddRange(lo, hi, now)
		return DataPacketAction{
			Kind:     ReceivedWithLoss,
			Lrsn:     e.buffer.InOrderBoundary(),
			LossList: [][2]seq.SeqNumber{{lo, hi}},
		}, nil
	}

	e.lightAckCounter++
	if e.lightAckCounter >= e.cfg.LightAckThreshold {
		e.lightAckCounter = 0
		return DataPacketAction{
			Kind:      ReceivedWithLightAck,
			Lrsn:      e.buffer.InOrderBoundary(),
			Recovered: outcome == Recovered,
		}, nil
	}

	return DataPacketAction{
		Kind:      Received,
		Lrsn:      e.buffer.InOrderBoundary(),
		Recovered: outcome == Recovered,
	}, nil
}

// HandleAck2Packet resolves a peer's echo of a full ACK into an RTT
// sample and updates the RTT estimator per §4.7's smoothing formulas.
// err is ErrAck2NotFound when fullAckSeq has no matching AckHistory
// entry — the Go-native resolution of the source's inverted return
// value (see the package's ACK2 open-question notes).
func (e *Engine) HandleAck2Packet(now time.Time, fullAckSeq uint32) (time.Duration, error) {
	sample, ok := e.acks.Lookup(fullAckSeq, now)
	if !ok {
		return 0, ErrAck2NotFound
	}

	diff := e.rttMean - sample
	if diff < 0 {
		diff = -diff
	}
	e.rttVariance = (3*e.rttVariance + diff) / 4
	e.rttMean = (7*e.rttMean + sample) / 8

	return sample, nil
}

// HandleDropRequest removes a sender-declared dead range from the loss
// history and buffer, returning how many slots were discarded.
func (e *Engine) HandleDropRequest(now time.Time, lo, hi seq.SeqNumber) int {
	e.loss.RemoveRange(lo, hi)
	return e.buffer.DropRange(lo, hi)
}

// OnFullAckEvent allocates and records a new full ACK if the in-order
// receive boundary has advanced since the last one; returns nil if
// there has been no progress to report. This is keyed off the receive
// boundary rather than the TSBPD low-water mark: otherwise, with
// TSBPD latency holding payloads for playout, a full ACK would never
// show progress until the buffer actually released something.
func (e *Engine) OnFullAckEvent(now time.Time) *FullAck {
	ackedUpTo := e.buffer.InOrderBoundary()
	if e.hasFullAcked && e.lastFullAckedSeq == ackedUpTo {
		return nil
	}

	e.fullAckCounter++
	e.acks.Record(e.fullAckCounter, now)
	e.lastFullAckedSeq = ackedUpTo
	e.hasFullAcked = true

	rate, bandwidth := e.estimateRates(now)

	return &FullAck{
		AckSeqNo:           e.fullAckCounter,
		AckedUpTo:          ackedUpTo,
		RttMean:            e.rttMean,
		RttVariance:        e.rttVariance,
		AvailableBuffer:    e.buffer.Available(),
		PktRecvRate:        rate,
		EstimatedBandwidth: bandwidth,
	}
}

// estimateRates derives a packets-per-second and bytes-per-second
// figure from the most recent arrival-time samples.
func (e *Engine) estimateRates(now time.Time) (pktRate, bandwidth uint32) {
	if len(e.rateSamples) < 2 {
		return 0, 0
	}
	first := e.rateSamples[0]
	last := e.rateSamples[len(e.rateSamples)-1]
	span := last.at.Sub(first.at)
	if span <= 0 {
		return 0, 0
	}
	n := len(e.rateSamples)
	totalBytes := 0
	for _, s := range e.rateSamples {
		totalBytes += s.size
	}
	seconds := span.Seconds()
	pktRate = uint32(float64(n) / seconds)
	bandwidth = uint32(float64(totalBytes) / seconds)
	return pktRate, bandwidth
}

// OnNakEvent delegates to the loss history's periodic re-send policy.
// Re-send spacing is max(rtt_mean, NAKReportInterval) per §4.4: a slow
// link's own RTT sets the floor once it exceeds the configured one.
func (e *Engine) OnNakEvent(now time.Time) wire.CompressedLossList {
	due := e.loss.DueForNAK(now, e.rttMean)
	if len(due) == 0 {
		return nil
	}
	return wire.EncodeLossList(due)
}

// PopReady releases every payload whose TSBPD deadline has passed.
func (e *Engine) PopReady(now time.Time) ([]Delivered, int) {
	return e.buffer.PopReady(now)
}

// NextReleaseSeq returns the buffer's current low-water mark.
func (e *Engine) NextReleaseSeq() seq.SeqNumber {
	return e.buffer.NextRelease()
}
