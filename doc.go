// Package arqstream implements the receiver side of a reliable,
// low-latency media transport protocol layered over an unreliable
// datagram substrate: ordered, timestamp-based delivery with bounded
// end-to-end latency and loss recovery via NAK/full-ACK.
//
// Subpackages:
//
//   - seq: 31-bit sequence-number and 32-bit timestamp arithmetic.
//   - wire: the binary packet encodings exchanged with a peer.
//   - arq: the ARQ engine and its collaborators (receive buffer, loss
//     history, ACK history, clock, decryption).
//
// ReceiverContext is the per-connection orchestrator; everything below
// it is synchronous and single-threaded, driven entirely by the
// caller-supplied now on each call.
package arqstream
