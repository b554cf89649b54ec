package arq

import (
	"errors"
	"fmt"
)

// DataPacketErrorKind classifies why a data packet was not delivered.
type DataPacketErrorKind int

const (
	// BufferFull: the colliding slot is still occupied and the gap to
	// it equals capacity exactly — the sender must wait.
	BufferFull DataPacketErrorKind = iota
	// PacketTooEarly: the packet falls further ahead than the receive
	// window can currently hold.
	PacketTooEarly
	// PacketTooLate: the packet falls before the low-water mark.
	PacketTooLate
	// DiscardedDuplicate: the slot already holds this exact sequence.
	DiscardedDuplicate
	// DecryptionErrorKind: payload failed to decrypt or authenticate.
	DecryptionErrorKind
)

func (k DataPacketErrorKind) String() string {
	switch k {
	case BufferFull:
		return "buffer full"
	case PacketTooEarly:
		return "packet too early"
	case PacketTooLate:
		return "packet too late"
	case DiscardedDuplicate:
		return "discarded duplicate"
	case DecryptionErrorKind:
		return "decryption error"
	default:
		return "unknown"
	}
}

// DataPacketError reports why handling a data packet did not result in
// delivery. BufferRequired is only meaningful for PacketTooEarly.
type DataPacketError struct {
	Kind           DataPacketErrorKind
	BufferRequired int
	Cause          error
}

func (e *DataPacketError) Error() string {
	if e.Kind == PacketTooEarly {
		return fmt.Sprintf("%s: buffer would need %d more slots", e.Kind, e.BufferRequired)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *DataPacketError) Unwrap() error { return e.Cause }

// ErrAck2NotFound is returned by Engine.HandleAck2Packet when the
// acknowledged full-ACK sequence has no matching AckHistory entry —
// either it was already consumed by a prior ACK2, or the peer echoed a
// stale/forged sequence number.
var ErrAck2NotFound = errors.New("arq: ack2 sequence not found in ack history")

// ErrKeyRefreshMalformed is returned by Decryption.RefreshKeyMaterial
// when the supplied key material fails authentication. Per the error
// taxonomy this is a log-level event, never state-mutating.
var ErrKeyRefreshMalformed = errors.New("arq: key refresh material failed authentication")
