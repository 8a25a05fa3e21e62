package util

import (
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// Hash32 is the content checksum stored with every WAL record and
// SSTable data entry. The on-disk format hardcodes it; changing the
// function invalidates existing files.
func Hash32(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}

// Hash64 drives the bloom filter probes. Same stability contract as Hash32.
func Hash64(p []byte) uint64 {
	return xxhash.Sum64(p)
}
