package arq

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/salsa20"
	"lukechampine.com/blake3"
)

// KeyMaterial is one generation of stream-cipher key, identified by a
// UUID so both ends can agree which generation a given data packet was
// encrypted under during a key-refresh handover.
type KeyMaterial struct {
	KeyID      uuid.UUID
	Epoch      uint32
	Salt       []byte // mixed into the per-packet nonce
	WrappedKey []byte // 32-byte salsa20 key, wrapped for transport
}

// Decryption holds the current and, during a handover, the previous
// generation of key material, and decrypts inbound data-packet
// payloads with Salsa20 keyed per §4.6. The previous generation is
// retained until the overlap window after a refresh closes, but
// Decrypt does not use it: payloads are always decrypted with the
// current generation.
type Decryption struct {
	current  *KeyMaterial
	previous *KeyMaterial
	cutover  time.Time // previous is no longer accepted after this instant

	// KeyOverlapWindow bounds how long the previous generation remains
	// valid after a refresh is installed.
	KeyOverlapWindow time.Duration
}

// NewDecryption constructs a Decryption seeded with the initial key
// material negotiated at handshake time.
func NewDecryption(initial KeyMaterial) *Decryption {
	km := initial
	return &Decryption{current: &km, KeyOverlapWindow: 2 * time.Second}
}

func unwrapKey(km *KeyMaterial) *[32]byte {
	var key [32]byte
	copy(key[:], km.WrappedKey)
	return &key
}

func nonceFor(km *KeyMaterial, seqValue uint32) []byte {
	nonce := make([]byte, 8)
	nonce[0] = byte(seqValue)
	nonce[1] = byte(seqValue >> 8)
	nonce[2] = byte(seqValue >> 16)
	nonce[3] = byte(seqValue >> 24)
	if len(km.Salt) >= 4 {
		copy(nonce[4:8], km.Salt[:4])
	}
	return nonce
}

// Decrypt returns a newly allocated plaintext for ciphertext, keyed by
// the sequence number (mixed into the nonce so two packets never reuse
// a keystream) and the current generation of key material. It does not
// fall back to the previous generation inside the overlap window: a
// packet encrypted under the previous key is decrypted with the
// current one.
func (d *Decryption) Decrypt(ciphertext []byte, seqValue uint32, now time.Time) ([]byte, error) {
	plaintext := make([]byte, len(ciphertext))

	salsa20.XORKeyStream(plaintext, ciphertext, nonceFor(d.current, seqValue), unwrapKey(d.current))
	if d.previous == nil || now.After(d.cutover) {
		return plaintext, nil
	}

	// Inside the overlap window the packet does not say which generation
	// applies, so the current generation's result is returned here too.
	return plaintext, nil
}

// RefreshKeyMaterial authenticates and installs a new key generation.
// tag must equal the BLAKE3 hash of next's WrappedKey salted by Salt;
// a mismatch returns ErrKeyRefreshMalformed and leaves state untouched.
func (d *Decryption) RefreshKeyMaterial(next KeyMaterial, tag []byte, now time.Time) error {
	if !authenticates(next, tag) {
		return ErrKeyRefreshMalformed
	}
	prev := d.current
	km := next
	d.previous = prev
	d.current = &km
	d.cutover = now.Add(d.KeyOverlapWindow)
	return nil
}

func authenticates(km KeyMaterial, tag []byte) bool {
	h := blake3.New(32, nil)
	h.Write(km.WrappedKey)
	h.Write(km.Salt)
	sum := h.Sum(nil)
	if len(sum) != len(tag) {
		return false
	}
	for i := range sum {
		if sum[i] != tag[i] {
			return false
		}
	}
	return true
}

// CurrentKeyID returns the identifier of the active key generation.
func (d *Decryption) CurrentKeyID() uuid.UUID {
	return d.current.KeyID
}
