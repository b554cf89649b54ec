package arqstream

import (
	"errors"
	"log"
	"time"

	"github.com/rs/xid"

	"github.com/arqstream/arqstream/arq"
	"github.com/arqstream/arqstream/seq"
	"github.com/arqstream/arqstream/wire"
)

// ConnState is the ReceiverContext's lifecycle state.
type ConnState int

const (
	Open ConnState = iota
	Draining
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Open:
		return "open"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Timers receives RTT updates so the caller can reschedule its own
// full-ACK/NAK/close timers.
type Timers interface {
	UpdateRTT(d time.Duration)
}

// Output is the non-blocking control-packet sink the context emits
// into. Implementations enqueue pkt for transmission; SendControl must
// not block.
type Output interface {
	SendControl(now time.Time, pkt wire.Packet)
}

// ReceiverContext is the thin per-connection orchestrator binding the
// ARQ engine to its three external collaborators. It owns no policy:
// every method updates counters, delegates to decryption/ARQ, and
// turns the result into zero or one outbound control packet.
type ReceiverContext struct {
	timers   Timers
	output   Output
	stats    Statistics
	receiver *Receiver
	destID   SocketID
	logger   *log.Logger
	traceID  xid.ID

	state ConnState
}

// NewReceiverContext constructs a ReceiverContext wired to the given
// collaborators. logger may be nil, in which case log.Default() is
// used for the ambient logging surface (connection lifecycle,
// key-refresh rejection). A fresh xid.ID tags every log line this
// context emits, so a connection's history can be grepped out of a
// shared log stream even when many connections are interleaved.
func NewReceiverContext(timers Timers, output Output, stats Statistics, receiver *Receiver, destID SocketID, logger *log.Logger) *ReceiverContext {
	if logger == nil {
		logger = log.Default()
	}
	c := &ReceiverContext{
		timers:   timers,
		output:   output,
		stats:    stats,
		receiver: receiver,
		destID:   destID,
		logger:   logger,
		traceID:  xid.New(),
		state:    Open,
	}
	c.logger.Printf("arqstream[%s]: receiver context opened for socket %d", c.traceID, destID)
	return c
}

// TraceID returns this connection's log-correlation identifier.
func (c *ReceiverContext) TraceID() xid.ID { return c.traceID }

// State returns the connection's current lifecycle state.
func (c *ReceiverContext) State() ConnState { return c.state }

// SynchronizeClock feeds one TSBPD sample into the ARQ engine's clock,
// bumping rx_clock_adjustments when a correction is applied.
func (c *ReceiverContext) SynchronizeClock(now time.Time, ts seq.TimeStamp) {
	if c.state == Closed {
		return
	}
	if adj := c.receiver.ARQ.SynchronizeClock(now, ts); adj != nil {
		c.stats.AddRxClockAdjustments(1)
	}
}

// HandleDataPacket decrypts and offers one data packet to the ARQ
// engine, translating its classification into a NAK, a light ACK, or
// nothing, and updating every byte/packet counter the event implies.
func (c *ReceiverContext) HandleDataPacket(now time.Time, pkt *wire.DataPacket) {
	if c.state != Open {
		return
	}
	bytes := uint64(len(pkt.Payload))
	c.stats.AddRxData(1, bytes)

	plaintext, decryptedBytes, err := c.decrypt(pkt, now)
	if err != nil {
		c.stats.AddRxDecryptErrors(1, bytes)
		return
	}
	if decryptedBytes > 0 {
		c.stats.AddRxDecryptedData(1)
	}

	action, err := c.receiver.ARQ.HandleDataPacket(now, plaintext)
	if err != nil {
		var dpErr *arq.DataPacketError
		if errors.As(err, &dpErr) && dpErr.Kind == arq.DiscardedDuplicate {
			return
		}
		c.stats.AddRxDroppedData(1, bytes)
		return
	}

	if action.Recovered {
		c.stats.AddRxRetransmitData(1)
	} else {
		c.stats.AddRxUniqueData(1, bytes)
	}

	switch action.Kind {
	case arq.ReceivedWithLoss:
		nak := &wire.NakPacket{LossList: wire.EncodeLossList(action.LossList)}
		nak.SetHeader(uint32(c.destID), seq.NewTimeStamp(0))
		c.output.SendControl(now, nak)
	case arq.ReceivedWithLightAck:
		lite := &wire.LightAckPacket{AckedUpTo: action.Lrsn}
		lite.SetHeader(uint32(c.destID), seq.NewTimeStamp(0))
		c.output.SendControl(now, lite)
	}
}

// decrypt runs pkt's payload through the Receiver's Decryption and
// returns a copy of pkt carrying the plaintext, plus the decrypted
// byte count.
func (c *ReceiverContext) decrypt(pkt *wire.DataPacket, now time.Time) (*wire.DataPacket, int, error) {
	plain, err := c.receiver.Decryption.Decrypt(pkt.Payload, pkt.Seq.Value(), now)
	if err != nil {
		return nil, 0, err
	}
	out := *pkt
	out.Payload = plain
	return &out, len(plain), nil
}

// HandleAck2Packet resolves an ACK2 echo into an RTT sample, forwarding
// it to Timers on success and incrementing rx_ack2_errors when the
// acknowledged full-ACK sequence is unknown.
func (c *ReceiverContext) HandleAck2Packet(now time.Time, fullAckSeq uint32) {
	if c.state != Open {
		return
	}
	c.stats.AddRxAck2(1)
	rtt, err := c.receiver.ARQ.HandleAck2Packet(now, fullAckSeq)
	if err != nil {
		c.stats.AddRxAck2Errors(1)
		return
	}
	c.timers.UpdateRTT(rtt)
}

// HandleDropRequest removes a sender-declared dead range from ARQ
// state, counting whatever was discarded as dropped data.
func (c *ReceiverContext) HandleDropRequest(now time.Time, lo, hi seq.SeqNumber) {
	if c.state != Open {
		return
	}
	dropped := c.receiver.ARQ.HandleDropRequest(now, lo, hi)
	if dropped > 0 {
		c.stats.AddRxDroppedData(uint64(dropped), 0)
	}
}

// HandleKeyRefreshRequest authenticates and installs new key material,
// echoing a response iff the generation is new. A malformed or
// unauthenticated request is a log-level event only, per the error
// taxonomy: it never mutates state.
func (c *ReceiverContext) HandleKeyRefreshRequest(now time.Time, km arq.KeyMaterial, tag []byte) {
	if c.state != Open {
		return
	}
	if km.KeyID == c.receiver.Decryption.CurrentKeyID() {
		return
	}
	if err := c.receiver.Decryption.RefreshKeyMaterial(km, tag, now); err != nil {
		c.logger.Printf("arqstream[%s]: key refresh rejected: %v", c.traceID, err)
		return
	}
	resp := &wire.KeyRefreshPacket{Response: true, Epoch: km.Epoch}
	copy(resp.KeyID[:], km.KeyID[:])
	resp.SetHeader(uint32(c.destID), seq.NewTimeStamp(0))
	c.output.SendControl(now, resp)
}

// OnFullAckEvent asks the ARQ engine for a new full ACK, emitting it
// if there has been forward progress since the last one.
func (c *ReceiverContext) OnFullAckEvent(now time.Time) {
	if c.state == Closed {
		return
	}
	ack := c.receiver.ARQ.OnFullAckEvent(now)
	if ack == nil {
		return
	}
	pkt := &wire.AckPacket{
		AckSeqNo:     ack.AckSeqNo,
		AckedUpTo:    ack.AckedUpTo,
		RttMean:      uint32(ack.RttMean.Microseconds()),
		RttVariance:  uint32(ack.RttVariance.Microseconds()),
		AvailBuffer:  uint32(ack.AvailableBuffer),
		IncludeRates: true,
		PktRecvRate:  ack.PktRecvRate,
		EstBandwidth: ack.EstimatedBandwidth,
	}
	pkt.SetHeader(uint32(c.destID), seq.NewTimeStamp(0))
	c.output.SendControl(now, pkt)
}

// OnNakEvent asks the ARQ engine for any loss ranges due for periodic
// re-report and emits a NAK if there are any. Per the Draining state's
// contract, no further NAKs are produced once draining has begun, even
// though the NAK timer itself keeps firing.
func (c *ReceiverContext) OnNakEvent(now time.Time) {
	if c.state != Open {
		return
	}
	list := c.receiver.ARQ.OnNakEvent(now)
	if len(list) == 0 {
		return
	}
	pkt := &wire.NakPacket{LossList: list}
	pkt.SetHeader(uint32(c.destID), seq.NewTimeStamp(0))
	c.output.SendControl(now, pkt)
}

// OnCloseTimeout forces the connection to Closed, clearing all ARQ
// state. Idempotent: later calls to any method become no-ops.
func (c *ReceiverContext) OnCloseTimeout(now time.Time) {
	if c.state == Closed {
		return
	}
	c.receiver.ARQ.Clear()
	c.state = Closed
	c.logger.Printf("arqstream[%s]: receiver context closed", c.traceID)
}

// Drain transitions the connection out of Open: timer events still
// fire but no further NAKs are produced for newly arriving data, and
// data packets stop updating loss/light-ACK state once drained.
func (c *ReceiverContext) Drain() {
	if c.state == Open {
		c.state = Draining
	}
}
