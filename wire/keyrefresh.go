package wire

import (
	"encoding/binary"
	"errors"
)

// KeyRefreshPacket carries SRT-style keying material: a request from
// the sender offering new key material, or the receiver's response
// echoing it back to confirm installation. Request/response share a
// wire shape; Response is set false for a request.
type KeyRefreshPacket struct {
	ctrlHeader
	Response bool
	KeyID    [16]byte // github.com/google/uuid.UUID bytes
	Epoch    uint32
	Tag      []byte // BLAKE3 authentication tag
	Wrapped  []byte // wrapped key material
}

func (p *KeyRefreshPacket) PacketType() Type { return TypeKeyRefresh }

func (p *KeyRefreshPacket) WriteTo(buf []byte) (int, error) {
	info := uint32(0)
	if p.Response {
		info = 1
	}
	off, err := p.writeHdrTo(buf, TypeKeyRefresh, info)
	if err != nil {
		return 0, err
	}
	need := off + 16 + 4 + 2 + len(p.Tag) + 2 + len(p.Wrapped)
	if len(buf) < need {
		return 0, errors.New("wire: key-refresh packet buffer too small")
	}
	copy(buf[off:off+16], p.KeyID[:])
	off += 16
	binary.BigEndian.PutUint32(buf[off:off+4], p.Epoch)
	off += 4
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(p.Tag)))
	off += 2
	copy(buf[off:off+len(p.Tag)], p.Tag)
	off += len(p.Tag)
	binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(p.Wrapped)))
	off += 2
	copy(buf[off:off+len(p.Wrapped)], p.Wrapped)
	off += len(p.Wrapped)
	return off, nil
}

func (p *KeyRefreshPacket) readFrom(data []byte) error {
	info, err := p.readHdrFrom(data)
	if err != nil {
		return err
	}
	p.Response = info != 0
	off := 16
	if len(data) < off+16+4+2 {
		return errors.New("wire: key-refresh packet too small")
	}
	copy(p.KeyID[:], data[off:off+16])
	off += 16
	p.Epoch = binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	tagLen := int(binary.BigEndian.Uint16(data[off : off+2]))
	off += 2
	if len(data) < off+tagLen+2 {
		return errors.New("wire: key-refresh packet truncated tag")
	}
	p.Tag = append([]byte(nil), data[off:off+tagLen]...)
	off += tagLen
	wrappedLen := int(binary.BigEndian.Uint16(data[off : off+2]))
	off += 2
	if len(data) < off+wrappedLen {
		return errors.New("wire: key-refresh packet truncated key")
	}
	p.Wrapped = append([]byte(nil), data[off:off+wrappedLen]...)
	return nil
}
