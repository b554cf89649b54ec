package wire

// Ack2Packet confirms receipt of a full ACK, timestamped by the peer
// so the receiver can sample RTT on arrival.
type Ack2Packet struct {
	ctrlHeader
	AckSeqNo uint32
}

func (p *Ack2Packet) PacketType() Type { return TypeAck2 }

func (p *Ack2Packet) WriteTo(buf []byte) (int, error) {
	n, err := p.writeHdrTo(buf, TypeAck2, p.AckSeqNo)
	return n, err
}

func (p *Ack2Packet) readFrom(data []byte) error {
	info, err := p.readHdrFrom(data)
	if err != nil {
		return err
	}
	p.AckSeqNo = info
	return nil
}
