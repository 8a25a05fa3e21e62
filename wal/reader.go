package wal

import (
	"bufio"
	"io"
	"os"

	"lsmkv/data"
	"lsmkv/util"
)

// Reader scans a log file record by record, verifying each stored
// checksum. Next returns io.EOF only at a clean record boundary; a
// truncated trailing record surfaces as a file read error and a
// checksum mismatch as corruption.
type Reader struct {
	path string
	file *os.File
	r    *bufio.Reader
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, data.FileOpen(path)
	}

	return &Reader{path: path, file: f, r: bufio.NewReader(f)}, nil
}

func (r *Reader) Next() (Record, error) {
	var lens [headerSz]byte

	if _, err := io.ReadFull(r.r, lens[:]); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}

		return Record{}, data.FileRead(r.path)
	}

	var (
		keyLen = byteOrder.Uint32(lens[:4])
		valLen = byteOrder.Uint32(lens[4:])

		frame = make([]byte, headerSz+int(keyLen)+int(valLen)+checksumSz)
	)

	copy(frame, lens[:])

	if _, err := io.ReadFull(r.r, frame[headerSz:]); err != nil {
		return Record{}, data.FileRead(r.path)
	}

	var (
		body   = frame[:len(frame)-checksumSz]
		stored = byteOrder.Uint32(frame[len(frame)-checksumSz:])
	)

	if stored != util.Hash32(body) {
		return Record{}, data.Corruption(r.path, "wal record checksum mismatch")
	}

	return Record{
		Key:   string(body[headerSz : headerSz+keyLen]),
		Value: string(body[headerSz+keyLen:]),
	}, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
