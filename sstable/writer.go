package sstable

import (
	"lsmkv/bloom"
	"lsmkv/data"
	"lsmkv/util"
)

// The write side is a sequence of raw appends in fixed order: header,
// bloom filter, data entries, index, footer. The table tracks its own
// byte offset so the sparse index and the footer can reference file
// positions without seeking.

func (t *Table) WriteHeader(minKey, maxKey string) error {
	t.header = Header{MinKey: minKey, MaxKey: maxKey}

	var (
		idx1 = 4 + len(minKey)
		idx2 = idx1 + 4

		p = make([]byte, idx2+len(maxKey))
	)

	byteOrder.PutUint32(p[:4], uint32(len(minKey)))
	copy(p[4:idx1], minKey)
	byteOrder.PutUint32(p[idx1:idx2], uint32(len(maxKey)))
	copy(p[idx2:], maxKey)

	return t.writeAll(p)
}

func (t *Table) WriteBloom(f *bloom.Filter) error {
	p := make([]byte, 8+f.Len())

	byteOrder.PutUint64(p[:8], uint64(f.Len()))
	for i, b := range f.Bits() {
		if b {
			p[8+i] = 1
		}
	}

	if err := t.writeAll(p); err != nil {
		return err
	}
	t.filter = f

	return nil
}

// WriteEntry appends one data record. Entries must arrive in strictly
// ascending key order; every IndexStride-th one is anchored in the
// sparse index at its starting offset.
func (t *Table) WriteEntry(key, value string) error {
	if t.entries%IndexStride == 0 {
		t.index = append(t.index, IndexEntry{Key: key, Offset: uint64(t.offset)})
	}

	var (
		idx1 = 8 + len(key)
		idx2 = idx1 + len(value)

		p = make([]byte, idx2+4)
		k = util.StringToBytes(key)
		v = util.StringToBytes(value)
	)

	byteOrder.PutUint32(p[:4], uint32(len(k)))
	byteOrder.PutUint32(p[4:8], uint32(len(v)))
	copy(p[8:idx1], k)
	copy(p[idx1:idx2], v)
	byteOrder.PutUint32(p[idx2:], util.Hash32(p[:idx2]))

	if err := t.writeAll(p); err != nil {
		return err
	}
	t.entries++

	return nil
}

func (t *Table) WriteIndex() error {
	t.footer.IndexOffset = uint64(t.offset)

	var p []byte
	for _, e := range t.index {
		var (
			lenBuf [4]byte
			offBuf [8]byte
		)

		byteOrder.PutUint32(lenBuf[:], uint32(len(e.Key)))
		byteOrder.PutUint64(offBuf[:], e.Offset)

		p = append(p, lenBuf[:]...)
		p = append(p, e.Key...)
		p = append(p, offBuf[:]...)
	}

	if err := t.writeAll(p); err != nil {
		return err
	}

	t.footer.IndexSize = uint64(len(p))
	t.footer.NumIndexEntries = uint64(len(t.index))

	return nil
}

func (t *Table) WriteFooter() error {
	t.footer.Magic = magicNumber

	var p [footerSz]byte
	byteOrder.PutUint64(p[0:8], t.footer.IndexOffset)
	byteOrder.PutUint64(p[8:16], t.footer.IndexSize)
	byteOrder.PutUint64(p[16:24], t.footer.NumIndexEntries)
	byteOrder.PutUint64(p[24:32], t.footer.Magic)

	if err := t.writeAll(p[:]); err != nil {
		return err
	}

	// Map the finished file now, so concurrent Gets never race on a
	// lazy first mapping.
	return t.ensureMapped()
}

// writeAll issues a single write of the whole buffer. Partial writes
// are fatal; the caller abandons the file.
func (t *Table) writeAll(p []byte) error {
	if n, err := t.file.Write(p); err != nil || n != len(p) {
		return data.FileWrite(t.path)
	}
	t.offset += int64(len(p))

	return nil
}
