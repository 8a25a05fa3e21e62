// Package sstable implements the immutable on-disk sorted tables the
// engine flushes memtables into and compacts in pairs. Reads go
// through an mmap-backed view; a sparse index and a bloom filter keep
// point lookups to a bounded scan of at most IndexStride entries.
package sstable

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/exp/mmap"

	"lsmkv/bloom"
	"lsmkv/data"
	"lsmkv/util"
)

// Table owns its file handle and mmap view exclusively; Close releases
// both. Get is safe for concurrent readers, Next is not (it advances
// the table's cursor and belongs to the single-threaded merge).
type Table struct {
	path string
	file *os.File       // write handle, nil for tables opened read-only
	rdr  *mmap.ReaderAt // read view, mapped by Open or once WriteFooter completes

	offset  int64 // write position
	entries int   // data entries written
	pos     int64 // iterator cursor for Next

	header Header
	footer Footer
	index  []IndexEntry
	filter *bloom.Filter

	marked bool
}

// Create opens a fresh table file for writing at the given path.
func Create(path string) (*Table, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, data.FileOpen(path)
	}

	return &Table{path: path, file: f, filter: bloom.NewWithCapacity(0)}, nil
}

// CreateIn creates a table in dir with a clock-derived filename.
// Ordering comes from manifest position, the name only has to be unique.
func CreateIn(dir string) (*Table, error) {
	for {
		path := filepath.Join(dir, strconv.FormatInt(time.Now().UnixNano(), 10)+".sst")

		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return nil, data.FileOpen(path)
		}

		return &Table{path: path, file: f, filter: bloom.NewWithCapacity(0)}, nil
	}
}

// Open maps an existing table and parses header, bloom filter, footer
// and sparse index.
func Open(path string) (*Table, error) {
	t := &Table{path: path, filter: bloom.NewWithCapacity(0)}

	if err := t.ensureMapped(); err != nil {
		return nil, err
	}
	if err := t.readHeader(); err != nil {
		return nil, err
	}
	if err := t.readBloom(); err != nil {
		return nil, err
	}
	if err := t.readFooter(); err != nil {
		return nil, err
	}
	if err := t.readIndex(); err != nil {
		return nil, err
	}

	t.pos = t.dataStart()

	return t, nil
}

func (t *Table) Path() string { return t.path }

func (t *Table) Header() Header { return t.header }

func (t *Table) Footer() Footer { return t.footer }

// MarkDelete flags the table for removal; compaction sets it on its
// inputs and the manifest rewrite consumes it.
func (t *Table) MarkDelete() { t.marked = true }

func (t *Table) Marked() bool { return t.marked }

// Get searches for key. The key-range filter and the bloom filter
// short-circuit most misses; the sparse index bounds the scan to at
// most IndexStride entries.
func (t *Table) Get(key string) (string, bool, error) {
	if key < t.header.MinKey || key > t.header.MaxKey {
		return "", false, nil
	}
	if t.filter.Len() > 0 && !t.filter.MayContain(key) {
		return "", false, nil
	}
	if err := t.ensureMapped(); err != nil {
		return "", false, err
	}

	off := t.dataStart()

	// Last index anchor with an anchor key <= key.
	if i := sort.Search(len(t.index), func(i int) bool { return t.index[i].Key > key }); i > 0 {
		off = int64(t.index[i-1].Offset)
	}

	for n := 0; n < IndexStride; n++ {
		k, v, next, ok, err := t.readEntryAt(off)
		if err != nil {
			return "", false, err
		}
		if !ok || k > key {
			return "", false, nil
		}
		if k == key {
			return v, true, nil
		}

		off = next
	}

	return "", false, nil
}

// Next returns the data entries in file order, advancing the table's
// cursor. It is consumed exclusively by compaction.
func (t *Table) Next() (string, string, bool, error) {
	if err := t.ensureMapped(); err != nil {
		return "", "", false, err
	}

	if ds := t.dataStart(); t.pos < ds {
		t.pos = ds
	}

	k, v, next, ok, err := t.readEntryAt(t.pos)
	if err != nil || !ok {
		return "", "", false, err
	}

	t.pos = next

	return k, v, true, nil
}

func (t *Table) Close() error {
	var result error

	if t.rdr != nil {
		if err := t.rdr.Close(); err != nil {
			result = multierr.Append(result, err)
		}
		t.rdr = nil
	}

	if t.file != nil {
		if err := t.file.Close(); err != nil {
			result = multierr.Append(result, err)
		}
		t.file = nil
	}

	return result
}

// dataStart is the file offset of the first data entry, right past the
// header and the bloom section.
func (t *Table) dataStart() int64 {
	return t.header.size() + 8 + int64(t.filter.Len())
}

func (t *Table) ensureMapped() error {
	if t.rdr != nil {
		return nil
	}

	r, err := mmap.Open(t.path)
	if err != nil {
		return data.FileOpen(t.path)
	}
	t.rdr = r

	return nil
}

func (t *Table) readAt(p []byte, off int64) error {
	if n, err := t.rdr.ReadAt(p, off); err != nil || n != len(p) {
		return data.FileRead(t.path)
	}

	return nil
}

// readEntryAt parses one data entry. ok is false once off reaches the
// index region. The stored checksum is verified on every read.
func (t *Table) readEntryAt(off int64) (key, value string, next int64, ok bool, err error) {
	dataEnd := int64(t.footer.IndexOffset)
	if off >= dataEnd {
		return "", "", 0, false, nil
	}

	var lens [8]byte
	if err := t.readAt(lens[:], off); err != nil {
		return "", "", 0, false, err
	}

	var (
		keyLen  = int64(byteOrder.Uint32(lens[:4]))
		valLen  = int64(byteOrder.Uint32(lens[4:]))
		entrySz = entryOverhead + keyLen + valLen
	)

	if off+entrySz > dataEnd {
		return "", "", 0, false, data.Corruption(t.path, "data entry extends into the index")
	}

	frame := make([]byte, entrySz)
	if err := t.readAt(frame, off); err != nil {
		return "", "", 0, false, err
	}

	var (
		body   = frame[:entrySz-4]
		stored = byteOrder.Uint32(frame[entrySz-4:])
	)

	if stored != util.Hash32(body) {
		return "", "", 0, false, data.Corruption(t.path, "data entry checksum mismatch")
	}

	key = string(body[8 : 8+keyLen])
	value = string(body[8+keyLen:])

	return key, value, off + entrySz, true, nil
}

func (t *Table) readHeader() error {
	var (
		sz     = int64(t.rdr.Len())
		lenBuf [4]byte
	)

	if err := t.readAt(lenBuf[:], 0); err != nil {
		return err
	}
	minLen := int64(byteOrder.Uint32(lenBuf[:]))
	if 8+minLen > sz {
		return data.FileRead(t.path)
	}

	minKey := make([]byte, minLen)
	if err := t.readAt(minKey, 4); err != nil {
		return err
	}

	if err := t.readAt(lenBuf[:], 4+minLen); err != nil {
		return err
	}
	maxLen := int64(byteOrder.Uint32(lenBuf[:]))
	if 8+minLen+maxLen > sz {
		return data.FileRead(t.path)
	}

	maxKey := make([]byte, maxLen)
	if err := t.readAt(maxKey, 8+minLen); err != nil {
		return err
	}

	t.header = Header{MinKey: string(minKey), MaxKey: string(maxKey)}

	return nil
}

func (t *Table) readBloom() error {
	var (
		off  = t.header.size()
		nbuf [8]byte
	)

	if err := t.readAt(nbuf[:], off); err != nil {
		return err
	}

	nbits := int64(byteOrder.Uint64(nbuf[:]))
	if nbits == 0 {
		t.filter = bloom.NewWithCapacity(0)
		return nil
	}
	if off+8+nbits > int64(t.rdr.Len()) {
		return data.FileRead(t.path)
	}

	raw := make([]byte, nbits)
	if err := t.readAt(raw, off+8); err != nil {
		return err
	}

	bits := make([]bool, nbits)
	for i, b := range raw {
		bits[i] = b != 0
	}
	t.filter = bloom.FromBits(bits)

	return nil
}

func (t *Table) readFooter() error {
	sz := int64(t.rdr.Len())
	if sz < footerSz {
		return data.FileRead(t.path)
	}

	var buf [footerSz]byte
	if err := t.readAt(buf[:], sz-footerSz); err != nil {
		return err
	}

	f := Footer{
		IndexOffset:     byteOrder.Uint64(buf[0:8]),
		IndexSize:       byteOrder.Uint64(buf[8:16]),
		NumIndexEntries: byteOrder.Uint64(buf[16:24]),
		Magic:           byteOrder.Uint64(buf[24:32]),
	}

	if f.Magic != magicNumber {
		return &data.Error{Kind: data.FileReadError, Message: "invalid magic number in footer", Path: t.path}
	}

	t.footer = f

	return nil
}

func (t *Table) readIndex() error {
	var (
		off = int64(t.footer.IndexOffset)
		sz  = int64(t.rdr.Len())
	)

	t.index = make([]IndexEntry, 0, t.footer.NumIndexEntries)

	for uint64(len(t.index)) < t.footer.NumIndexEntries {
		var lenBuf [4]byte
		if err := t.readAt(lenBuf[:], off); err != nil {
			return err
		}

		keyLen := int64(byteOrder.Uint32(lenBuf[:]))
		if off+4+keyLen+8 > sz {
			return data.FileRead(t.path)
		}

		key := make([]byte, keyLen)
		if err := t.readAt(key, off+4); err != nil {
			return err
		}

		var offBuf [8]byte
		if err := t.readAt(offBuf[:], off+4+keyLen); err != nil {
			return err
		}

		t.index = append(t.index, IndexEntry{Key: string(key), Offset: byteOrder.Uint64(offBuf[:])})

		off += 4 + keyLen + 8
	}

	return nil
}
