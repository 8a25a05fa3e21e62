// Package wal implements the write-ahead log. Every mutation is
// appended and fsynced here before it touches the memtable, so a
// crash at any point either replays the record on the next open or
// loses only the unacknowledged call.
package wal

import (
	"os"

	"lsmkv/data"
)

type WAL struct {
	path string
	file *os.File
}

// Open opens the log for appending, creating it if absent.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, data.FileOpen(path)
	}

	return &WAL{path: path, file: f}, nil
}

// Append frames the record, writes it in a single call and syncs.
// It returns only after the bytes have reached the device.
func (w *WAL) Append(key, value string) error {
	r := NewRecord(key, value)

	p := r.ToBytes()
	if n, err := w.file.Write(p); err != nil || n != len(p) {
		return data.FileWrite(w.path)
	}

	return w.Sync()
}

// Sync forces outstanding bytes to disk.
func (w *WAL) Sync() error {
	if err := w.file.Sync(); err != nil {
		return data.FileWrite(w.path)
	}

	return nil
}

// Clear truncates the log to zero length. Only called after the
// memtable has been durably flushed to an SSTable.
func (w *WAL) Clear() error {
	if err := w.file.Truncate(0); err != nil {
		return data.FileWrite(w.path)
	}

	return nil
}

func (w *WAL) Path() string { return w.path }

func (w *WAL) Close() error {
	return w.file.Close()
}
