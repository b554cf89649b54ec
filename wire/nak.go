package wire

import (
	"errors"

	"github.com/arqstream/arqstream/seq"
)

// rangeMarkBit flags the first word of an inclusive [lo, hi] range in
// a compressed loss list; singletons carry it clear.
const rangeMarkBit = 0x80000000

// CompressedLossList is the run-length encoding of a set of missing
// sequence ranges: each element is either a singleton (MSB clear) or
// the first of a pair marking an inclusive range (MSB set on lo,
// clear on the following hi).
type CompressedLossList []uint32

// EncodeLossList compresses an ordered, disjoint set of inclusive
// ranges into wire words.
func EncodeLossList(ranges [][2]seq.SeqNumber) CompressedLossList {
	out := make(CompressedLossList, 0, len(ranges)*2)
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		if lo == hi {
			out = append(out, lo.Value())
		} else {
			out = append(out, lo.Value()|rangeMarkBit, hi.Value()&^rangeMarkBit)
		}
	}
	return out
}

// Decode expands the compressed list back into inclusive ranges.
func (l CompressedLossList) Decode() ([][2]seq.SeqNumber, error) {
	var out [][2]seq.SeqNumber
	for i := 0; i < len(l); i++ {
		if l[i]&rangeMarkBit != 0 {
			if i+1 >= len(l) {
				return nil, errors.New("wire: truncated loss-list range")
			}
			lo := seq.New(l[i] &^ rangeMarkBit)
			hi := seq.New(l[i+1] &^ rangeMarkBit)
			out = append(out, [2]seq.SeqNumber{lo, hi})
			i++
		} else {
			s := seq.New(l[i])
			out = append(out, [2]seq.SeqNumber{s, s})
		}
	}
	return out, nil
}

// NakPacket notifies the peer of missing sequence ranges.
type NakPacket struct {
	ctrlHeader
	LossList CompressedLossList
}

func (p *NakPacket) PacketType() Type { return TypeNak }

func (p *NakPacket) WriteTo(buf []byte) (int, error) {
	off, err := p.writeHdrTo(buf, TypeNak, 0)
	if err != nil {
		return 0, err
	}
	need := off + 4*len(p.LossList)
	if len(buf) < need {
		return 0, errors.New("wire: nak packet buffer too small")
	}
	for _, w := range p.LossList {
		endianness.PutUint32(buf[off:off+4], w)
		off += 4
	}
	return off, nil
}

func (p *NakPacket) readFrom(data []byte) error {
	if _, err := p.readHdrFrom(data); err != nil {
		return err
	}
	n := (len(data) - 16) / 4
	p.LossList = make(CompressedLossList, n)
	for i := 0; i < n; i++ {
		off := 16 + 4*i
		p.LossList[i] = endianness.Uint32(data[off : off+4])
	}
	return nil
}
