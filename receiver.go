package arqstream

import (
	"github.com/arqstream/arqstream/arq"
	"github.com/arqstream/arqstream/seq"
)

// SocketID identifies one end of a connection on the wire, carried in
// every packet's destination-socket field.
type SocketID uint32

// ConnectionSettings is the input contract produced by the (external,
// out of scope) handshake state machine.
type ConnectionSettings struct {
	SocketStartTime  int64 // local instant of remote epoch, unix nanos
	RecvTSBPDLatency int64 // nanoseconds
	InitSeqNum       seq.SeqNumber
	RecvBufferSize   int
	Cipher           arq.KeyMaterial
}

// Receiver owns the two independently-lifetimed pieces of receive-side
// state: the ARQ engine and the decryption key state. Decryption is
// kept separate from ARQ progress so a key refresh never depends on
// buffer occupancy.
type Receiver struct {
	ARQ        *arq.Engine
	Decryption *arq.Decryption
}

// NewReceiver constructs a Receiver for a freshly handshaked
// connection using the given ambient Config and ConnectionSettings.
func NewReceiver(cfg Config, settings ConnectionSettings) *Receiver {
	decryption := arq.NewDecryption(settings.Cipher)
	if cfg.KeyOverlapWindow > 0 {
		decryption.KeyOverlapWindow = cfg.KeyOverlapWindow
	}
	return &Receiver{
		ARQ:        arq.NewEngine(cfg.engineConfig(), settings.InitSeqNum),
		Decryption: decryption,
	}
}

// IsFlushed reports whether the receive buffer holds no data pending
// release.
func (r *Receiver) IsFlushed() bool {
	return r.ARQ.IsFlushed()
}
