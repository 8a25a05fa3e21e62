// Package bloom implements the fixed-size bloom filter stored inside
// every SSTable. A filter sized for N keys allocates 10 bits per key
// and probes 7 positions per key, giving roughly a 1% false positive
// rate. There are no false negatives.
package bloom

import "lsmkv/util"

const (
	bitsPerKey = 10
	// floor(10 * ln 2)
	numHashes = 7
)

type Filter struct {
	bits []bool
}

// NewWithCapacity sizes a filter for n keys. n == 0 yields an empty
// filter, which reports every key as possibly present.
func NewWithCapacity(n int) *Filter {
	if n <= 0 {
		return &Filter{}
	}

	return &Filter{bits: make([]bool, n*bitsPerKey)}
}

// FromBits wraps a bit vector read back from disk.
func FromBits(bits []bool) *Filter {
	return &Filter{bits: bits}
}

func (f *Filter) Add(key string) {
	if len(f.bits) == 0 {
		return
	}

	for _, i := range f.positions(key) {
		f.bits[i] = true
	}
}

// MayContain reports whether key may have been added. An empty filter
// cannot exclude anything and always returns true.
func (f *Filter) MayContain(key string) bool {
	if len(f.bits) == 0 {
		return true
	}

	for _, i := range f.positions(key) {
		if !f.bits[i] {
			return false
		}
	}

	return true
}

// Bits exposes the raw bit vector for serialization.
func (f *Filter) Bits() []bool { return f.bits }

func (f *Filter) Len() int { return len(f.bits) }

// positions derives the probe indices by double hashing:
// idx_i = (h1 + i*h2) mod nbits.
func (f *Filter) positions(key string) [numHashes]uint64 {
	var (
		p     [numHashes]uint64
		b     = util.StringToBytes(key)
		h1    = util.Hash64(b)
		h2    = uint64(util.Hash32(b))
		nbits = uint64(len(f.bits))
	)

	for i := uint64(0); i < numHashes; i++ {
		p[i] = (h1 + i*h2) % nbits
	}

	return p
}
