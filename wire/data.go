package wire

import (
	"errors"

	"github.com/arqstream/arqstream/seq"
)

// MessageBoundary describes where a data packet falls within a
// multi-packet application message.
type MessageBoundary uint8

const (
	MbMiddle MessageBoundary = 0
	MbLast   MessageBoundary = 1
	MbFirst  MessageBoundary = 2
	MbOnly   MessageBoundary = 3
)

// DataPacket carries one packetized chunk of the media stream.
type DataPacket struct {
	Seq       seq.SeqNumber
	MsgNumber uint32
	Timestamp seq.TimeStamp
	DestID    uint32
	Boundary  MessageBoundary
	Payload   []byte
}

func (dp *DataPacket) DestSocketID() uint32 { return dp.DestID }
func (dp *DataPacket) SendTime() seq.TimeStamp { return dp.Timestamp }
func (dp *DataPacket) PacketType() Type        { return TypeData }

func (dp *DataPacket) SetHeader(destID uint32, ts seq.TimeStamp) {
	dp.DestID = destID
	dp.Timestamp = ts
}

// WriteTo encodes the packet: seq (4), boundary+msgNumber (4),
// timestamp (4), dest socket id (4), payload.
func (dp *DataPacket) WriteTo(buf []byte) (int, error) {
	need := 16 + len(dp.Payload)
	if len(buf) < need {
		return 0, errors.New("wire: data packet buffer too small")
	}
	endianness.PutUint32(buf[0:4], dp.Seq.Value())
	endianness.PutUint32(buf[4:8], (uint32(dp.Boundary)<<30)|(dp.MsgNumber&0x3FFFFFFF))
	endianness.PutUint32(buf[8:12], dp.Timestamp.Micros())
	endianness.PutUint32(buf[12:16], dp.DestID)
	copy(buf[16:], dp.Payload)
	return need, nil
}

func (dp *DataPacket) readFrom(data []byte) error {
	if len(data) < 16 {
		return errors.New("wire: data packet too small")
	}
	dp.Seq = seq.New(endianness.Uint32(data[0:4]))
	msgWord := endianness.Uint32(data[4:8])
	dp.Boundary = MessageBoundary(msgWord >> 30)
	dp.MsgNumber = msgWord & 0x3FFFFFFF
	dp.Timestamp = seq.NewTimeStamp(endianness.Uint32(data[8:12]))
	dp.DestID = endianness.Uint32(data[12:16])
	dp.Payload = append([]byte(nil), data[16:]...)
	return nil
}
