package wal

import (
	"encoding/binary"
	"fmt"

	"lsmkv/util"
)

type Record struct {
	Key   string
	Value string
}

const (
	headerSz   = 8
	checksumSz = 4
)

var byteOrder = binary.LittleEndian

func NewRecord(key, value string) Record {
	return Record{Key: key, Value: value}
}

func (r *Record) String() string {
	return fmt.Sprintf("(%q, %q)", r.Key, r.Value)
}

func (r *Record) Size() int {
	return headerSz + len(r.Key) + len(r.Value) + checksumSz
}

// ToBytes frames the record as [klen][vlen][key][value][checksum],
// the checksum covering everything before it.
func (r *Record) ToBytes() []byte {
	var (
		idx1 = 4
		idx2 = idx1 + 4
		idx3 = idx2 + len(r.Key)
		idx4 = idx3 + len(r.Value)

		p = make([]byte, idx4+checksumSz)
		k = util.StringToBytes(r.Key)
		v = util.StringToBytes(r.Value)
	)

	byteOrder.PutUint32(p[:idx1], uint32(len(k)))
	byteOrder.PutUint32(p[idx1:idx2], uint32(len(v)))

	copy(p[idx2:idx3], k)
	copy(p[idx3:idx4], v)

	byteOrder.PutUint32(p[idx4:], util.Hash32(p[:idx4]))

	return p
}
