package wire

import (
	"reflect"
	"testing"

	"github.com/arqstream/arqstream/seq"
)

func roundTrip(t *testing.T, p Packet) Packet {
	t.Helper()
	buf := make([]byte, 1500)
	n, err := p.WriteTo(buf)
	if err != nil {
		t.Fatalf("WriteTo: %s", err)
	}
	p2, err := DecodePacket(buf[0:n])
	if err != nil {
		t.Fatalf("DecodePacket: %s", err)
	}
	if !reflect.DeepEqual(p, p2) {
		t.Fatalf("round trip mismatch\nwrote: %#v\nread:  %#v", p, p2)
	}
	return p2
}

func TestDataPacketRoundTrip(t *testing.T) {
	dp := &DataPacket{
		Seq:       seq.New(100),
		MsgNumber: 42,
		Boundary:  MbOnly,
		Payload:   []byte("hello world"),
	}
	dp.SetHeader(59, seq.NewTimeStamp(1234))
	roundTrip(t, dp)
}

func TestAckPacketRoundTrip(t *testing.T) {
	p1 := &AckPacket{
		AckSeqNo:     90,
		AckedUpTo:    seq.New(91),
		RttMean:      92,
		RttVariance:  93,
		AvailBuffer:  94,
		IncludeRates: true,
		PktRecvRate:  95,
		EstBandwidth: 96,
	}
	p1.SetHeader(59, seq.NewTimeStamp(100))
	roundTrip(t, p1)

	p2 := &AckPacket{
		AckSeqNo:    90,
		AckedUpTo:   seq.New(91),
		RttMean:     92,
		RttVariance: 93,
		AvailBuffer: 94,
	}
	p2.SetHeader(59, seq.NewTimeStamp(100))
	roundTrip(t, p2)
}

func TestLightAckPacketRoundTrip(t *testing.T) {
	p := &LightAckPacket{AckedUpTo: seq.New(164)}
	p.SetHeader(59, seq.NewTimeStamp(7))
	roundTrip(t, p)
}

func TestAck2PacketRoundTrip(t *testing.T) {
	p := &Ack2Packet{AckSeqNo: 7}
	p.SetHeader(59, seq.NewTimeStamp(7))
	roundTrip(t, p)
}

func TestNakPacketRoundTrip(t *testing.T) {
	p := &NakPacket{LossList: CompressedLossList{101, 105 | rangeMarkBit, 108}}
	p.SetHeader(59, seq.NewTimeStamp(7))
	roundTrip(t, p)
}

func TestKeyRefreshPacketRoundTrip(t *testing.T) {
	p := &KeyRefreshPacket{
		Response: true,
		Epoch:    3,
		Tag:      []byte{1, 2, 3, 4},
		Wrapped:  []byte{5, 6, 7, 8, 9},
	}
	copy(p.KeyID[:], "0123456789abcdef")
	p.SetHeader(59, seq.NewTimeStamp(7))
	roundTrip(t, p)
}

func TestCompressedLossListRoundTrip(t *testing.T) {
	ranges := [][2]seq.SeqNumber{
		{seq.New(10), seq.New(10)},
		{seq.New(20), seq.New(25)},
		{seq.New(40), seq.New(40)},
	}
	encoded := EncodeLossList(ranges)
	decoded, err := encoded.Decode()
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if !reflect.DeepEqual(ranges, decoded) {
		t.Fatalf("loss list round trip mismatch: got %v, want %v", decoded, ranges)
	}
}
