// Package drbg implements the CTR_DRBG mechanism of NIST SP 800-90A
// (section 10.2) instantiated with AES-256 and no derivation function.
//
// The engine models the generator inside the CSRNG block:
//   - Key and V are only ever mutated by Update
//   - Generate queues whole 128-bit blocks for a consumer to drain
//   - Seed words arrive in register order and are massaged into the
//     48-byte seed material the algorithm expects
//
// The block cipher is injected so the engine can be driven by any
// AES-256 implementation; DefaultCipher uses crypto/aes.
package drbg

import (
	"crypto/aes"
	"fmt"
)

// Table 3 of SP 800-90A section 10.2.1 for AES-256.
const (
	BlockLen = 128 / 8
	KeyLen   = 256 / 8
	SeedLen  = BlockLen + KeyLen
)

// Block is one cipher block, also the width of the counter V.
type Block [BlockLen]byte

// Key is an AES-256 key.
type Key [KeyLen]byte

// SeedMaterial is the provided_data input of the update function.
type SeedMaterial [SeedLen]byte

// Cipher encrypts a single block under key.
type Cipher func(key *Key, block *Block) Block

// DefaultCipher is AES-256 from the standard library.
func DefaultCipher(key *Key, block *Block) Block {
	c, err := aes.NewCipher(key[:])
	if err != nil {
		// NewCipher only fails on a bad key length, which Key rules out.
		panic(fmt.Sprintf("drbg: construct AES-256: %v", err))
	}
	var out Block
	c.Encrypt(out[:], block[:])
	return out
}

// CtrDrbg holds the secret generator state and the queue of generated
// blocks waiting to be drained.
type CtrDrbg struct {
	key     Key
	v       Block
	pending []Block
	encrypt Cipher
}

// New returns an engine with all-zero state. A nil cipher selects
// DefaultCipher.
func New(cipher Cipher) *CtrDrbg {
	if cipher == nil {
		cipher = DefaultCipher
	}
	return &CtrDrbg{encrypt: cipher}
}

// Instantiate resets Key and V and seeds the engine from seed words
// (oldest first). An empty seed gives all-zero seed material.
func (d *CtrDrbg) Instantiate(seed []uint32) {
	material := MassageSeed(seed)
	d.key = Key{}
	d.v = Block{}
	d.Update(&material)
}

// Update is CTR_DRBG_Update (SP 800-90A 10.2.1.2).
func (d *CtrDrbg) Update(provided *SeedMaterial) {
	var temp SeedMaterial
	for off := 0; off < SeedLen; off += BlockLen {
		IncrementBlock(&d.v)
		out := d.encrypt(&d.key, &d.v)
		copy(temp[off:off+BlockLen], out[:])
	}

	for i := range temp {
		temp[i] ^= provided[i]
	}

	copy(d.key[:], temp[:KeyLen])
	copy(d.v[:], temp[KeyLen:])
}

// Generate produces n blocks (SP 800-90A 10.2.1.5 without additional
// input) and replaces the pending queue with them. The queue is stored
// last-generated first, matching the order the hardware returns blocks.
func (d *CtrDrbg) Generate(n int) {
	d.pending = d.pending[:0]
	for i := 0; i < n; i++ {
		IncrementBlock(&d.v)
		d.pending = append(d.pending, d.encrypt(&d.key, &d.v))
	}

	for i, j := 0, len(d.pending)-1; i < j; i, j = i+1, j-1 {
		d.pending[i], d.pending[j] = d.pending[j], d.pending[i]
	}

	var zero SeedMaterial
	d.Update(&zero)
}

// Uninstantiate zeroes the state and drops any undrained output.
func (d *CtrDrbg) Uninstantiate() {
	d.key = Key{}
	d.v = Block{}
	d.pending = d.pending[:0]
}

// PopBlock removes the block at the front of the pending queue.
func (d *CtrDrbg) PopBlock() (Block, bool) {
	if len(d.pending) == 0 {
		return Block{}, false
	}
	b := d.pending[0]
	d.pending = d.pending[1:]
	return b, true
}

// Pending returns a copy of the undrained blocks in drain order.
func (d *CtrDrbg) Pending() []Block {
	out := make([]Block, len(d.pending))
	copy(out, d.pending)
	return out
}

// State returns copies of the current Key and V.
func (d *CtrDrbg) State() (Key, Block) {
	return d.key, d.v
}
