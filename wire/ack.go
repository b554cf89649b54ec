package wire

import (
	"errors"

	"github.com/arqstream/arqstream/seq"
)

// AckPacket is a full acknowledgement: cumulative sequence boundary
// plus RTT, buffer, and rate estimates. Elicits an ACK2 from the peer.
type AckPacket struct {
	ctrlHeader
	AckSeqNo    uint32
	AckedUpTo   seq.SeqNumber
	RttMean     uint32 // microseconds
	RttVariance uint32 // microseconds
	AvailBuffer uint32 // packets

	IncludeRates bool
	PktRecvRate  uint32 // packets/sec
	EstBandwidth uint32 // bytes/sec
}

func (p *AckPacket) PacketType() Type { return TypeAck }

func (p *AckPacket) WriteTo(buf []byte) (int, error) {
	if len(buf) < 32 {
		return 0, errors.New("wire: ack packet buffer too small")
	}
	if _, err := p.writeHdrTo(buf, TypeAck, p.AckSeqNo); err != nil {
		return 0, err
	}
	endianness.PutUint32(buf[16:20], p.AckedUpTo.Value())
	endianness.PutUint32(buf[20:24], p.RttMean)
	endianness.PutUint32(buf[24:28], p.RttVariance)
	endianness.PutUint32(buf[28:32], p.AvailBuffer)
	if !p.IncludeRates {
		return 32, nil
	}
	if len(buf) < 40 {
		return 0, errors.New("wire: ack packet buffer too small for rates")
	}
	endianness.PutUint32(buf[32:36], p.PktRecvRate)
	endianness.PutUint32(buf[36:40], p.EstBandwidth)
	return 40, nil
}

func (p *AckPacket) readFrom(data []byte) error {
	if len(data) < 32 {
		return errors.New("wire: ack packet too small")
	}
	info, err := p.readHdrFrom(data)
	if err != nil {
		return err
	}
	p.AckSeqNo = info
	p.AckedUpTo = seq.New(endianness.Uint32(data[16:20]))
	p.RttMean = endianness.Uint32(data[20:24])
	p.RttVariance = endianness.Uint32(data[24:28])
	p.AvailBuffer = endianness.Uint32(data[28:32])
	if len(data) >= 40 {
		p.IncludeRates = true
		p.PktRecvRate = endianness.Uint32(data[32:36])
		p.EstBandwidth = endianness.Uint32(data[36:40])
	}
	return nil
}
