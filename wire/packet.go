// Package wire implements the on-the-wire packet formats consumed and
// produced by the receiver: data packets and the four control packet
// kinds the receiver emits (full ACK, light ACK, NAK, and the SRT-style
// key-refresh response), plus decoding of whatever a demultiplexer
// hands up from the socket.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arqstream/arqstream/seq"
)

var endianness = binary.BigEndian

const (
	flagBit32 = 1 << 31
	flagBit16 = 1 << 15
)

// Type identifies the wire packet kind.
type Type uint16

const (
	TypeAck        Type = 0x2
	TypeNak        Type = 0x3
	TypeAck2       Type = 0x6
	TypeLightAck   Type = 0x7
	TypeKeyRefresh Type = 0x8
	TypeData       Type = 0x8000 // synthetic: never appears on the wire, returned by DecodePacket for data packets
)

func (t Type) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeNak:
		return "nak"
	case TypeAck2:
		return "ack2"
	case TypeLightAck:
		return "light-ack"
	case TypeKeyRefresh:
		return "key-refresh"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("packet-type-%#x", uint16(t))
	}
}

// Packet is any wire packet the receiver can send or receive.
type Packet interface {
	DestSocketID() uint32
	SendTime() seq.TimeStamp
	SetHeader(destSocketID uint32, ts seq.TimeStamp)
	WriteTo(buf []byte) (int, error)
	PacketType() Type
}

type ctrlHeader struct {
	ts     seq.TimeStamp
	destID uint32
}

func (h *ctrlHeader) DestSocketID() uint32        { return h.destID }
func (h *ctrlHeader) SendTime() seq.TimeStamp     { return h.ts }
func (h *ctrlHeader) SetHeader(destID uint32, ts seq.TimeStamp) {
	h.destID = destID
	h.ts = ts
}

// writeHdrTo writes the common 16-byte control header: type word (with
// the control flag bit set), an additional-info word, the send
// timestamp, and the destination socket id.
func (h *ctrlHeader) writeHdrTo(buf []byte, t Type, info uint32) (int, error) {
	if len(buf) < 16 {
		return 0, errors.New("wire: control packet buffer too small")
	}
	endianness.PutUint16(buf[0:2], uint16(t)|flagBit16)
	endianness.PutUint16(buf[2:4], 0)
	endianness.PutUint32(buf[4:8], info)
	endianness.PutUint32(buf[8:12], h.ts.Micros())
	endianness.PutUint32(buf[12:16], h.destID)
	return 16, nil
}

func (h *ctrlHeader) readHdrFrom(data []byte) (info uint32, err error) {
	if len(data) < 16 {
		return 0, errors.New("wire: control packet too small")
	}
	info = endianness.Uint32(data[4:8])
	h.ts = seq.NewTimeStamp(endianness.Uint32(data[8:12]))
	h.destID = endianness.Uint32(data[12:16])
	return info, nil
}

// DecodePacket decodes a raw UDP payload into a Packet.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < 4 {
		return nil, errors.New("wire: packet too small")
	}
	head := endianness.Uint32(data[0:4])
	if head&flagBit32 == 0 {
		// data packet: the full first word is the sequence number
		dp := &DataPacket{Seq: seq.New(head)}
		if err := dp.readFrom(data); err != nil {
			return nil, err
		}
		return dp, nil
	}

	t := Type(uint16(head>>16) &^ flagBit16)
	var p Packet
	switch t {
	case TypeAck:
		p = &AckPacket{}
	case TypeNak:
		p = &NakPacket{}
	case TypeAck2:
		p = &Ack2Packet{}
	case TypeLightAck:
		p = &LightAckPacket{}
	case TypeKeyRefresh:
		p = &KeyRefreshPacket{}
	default:
		return nil, fmt.Errorf("wire: unknown control packet type %s", t)
	}
	if err := p.(interface{ readFrom([]byte) error }).readFrom(data); err != nil {
		return nil, err
	}
	return p, nil
}
