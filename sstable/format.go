package sstable

import "encoding/binary"

// File layout, in order:
//
//	HEADER: [u32 min_len][min_key][u32 max_len][max_key]
//	BLOOM:  [u64 nbits][nbits bytes, one per bit]
//	DATA:   repeated [u32 klen][u32 vlen][key][value][u32 checksum]
//	INDEX:  repeated [u32 klen][key][u64 file_offset]
//	FOOTER: [u64 index_offset][u64 index_size][u64 num_index_entries][u64 magic]
//
// The file is immutable once its writer has finished.
const (
	// IndexStride is the number of data entries between two sparse
	// index anchors. Flush and compaction share it, so a point lookup
	// never scans more than IndexStride entries.
	IndexStride = 16

	magicNumber uint64 = 0xDEADBEEF

	footerSz = 32

	// Two u32 lengths plus the trailing u32 checksum.
	entryOverhead = 12
)

var byteOrder = binary.LittleEndian

type (
	Header struct {
		MinKey string
		MaxKey string
	}

	Footer struct {
		IndexOffset     uint64
		IndexSize       uint64
		NumIndexEntries uint64
		Magic           uint64
	}

	IndexEntry struct {
		Key    string
		Offset uint64
	}
)

func (h Header) size() int64 {
	return int64(8 + len(h.MinKey) + len(h.MaxKey))
}
