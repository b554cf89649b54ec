package wire

import (
	"errors"

	"github.com/arqstream/arqstream/seq"
)

// LightAckPacket is a lightweight cumulative ACK carrying only a
// sequence number — no RTT/rate data, so it doesn't gate RTT
// estimation and requires no ACK2 in return.
type LightAckPacket struct {
	ctrlHeader
	AckedUpTo seq.SeqNumber
}

func (p *LightAckPacket) PacketType() Type { return TypeLightAck }

func (p *LightAckPacket) WriteTo(buf []byte) (int, error) {
	if len(buf) < 20 {
		return 0, errors.New("wire: light-ack packet buffer too small")
	}
	if _, err := p.writeHdrTo(buf, TypeLightAck, 0); err != nil {
		return 0, err
	}
	endianness.PutUint32(buf[16:20], p.AckedUpTo.Value())
	return 20, nil
}

func (p *LightAckPacket) readFrom(data []byte) error {
	if len(data) < 20 {
		return errors.New("wire: light-ack packet too small")
	}
	if _, err := p.readHdrFrom(data); err != nil {
		return err
	}
	p.AckedUpTo = seq.New(endianness.Uint32(data[16:20]))
	return nil
}
