// Package engine ties the memtable, the write-ahead log and the
// on-disk tables into a single-node LSM tree meant to be embedded in
// another process. Gets take shared access, puts exclusive access;
// flush and compaction run inline inside the put that triggered them.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"lsmkv/data"
	"lsmkv/memtable"
	"lsmkv/sstable"
	"lsmkv/wal"
)

type Tree struct {
	mu  sync.RWMutex
	cfg Config

	mem    memtable.Table
	wal    *wal.WAL
	tables []*sstable.Table

	stats counters
}

// Open replays the WAL into a fresh memtable, opens every table the
// manifest lists (oldest first) and returns a ready tree.
func Open(cfg Config) (*Tree, error) {
	cfg.withDefaults()

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, data.FileOpen(cfg.Directory)
	}

	var (
		walPath = filepath.Join(cfg.Directory, walFile)
		mem     = memtable.NewRedBlackTree(cfg.FlushThresholdBytes)
	)

	if err := mem.RestoreFromWAL(walPath); err != nil {
		return nil, fmt.Errorf("failed to replay wal: %w", err)
	}

	w, err := wal.Open(walPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wal: %w", err)
	}

	t := &Tree{cfg: cfg, mem: mem, wal: w}

	if err := t.loadTables(); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to load sstables: %w", err)
	}

	log.WithFields(log.Fields{
		"dir":      cfg.Directory,
		"tables":   len(t.tables),
		"replayed": mem.Len(),
	}).Debug("opened lsm tree")

	return t, nil
}

// Get looks key up in the memtable first, then in the tables newest to
// oldest, so fresher writes shadow older ones. Table read errors are
// surfaced, not swallowed.
func (t *Tree) Get(key string) (data.Result, error) {
	start := time.Now()
	r, err := t.lookup(key)
	t.stats.recordGet(time.Since(start))

	return r, err
}

func (t *Tree) lookup(key string) (data.Result, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if v, ok := t.mem.Get(key); ok {
		return data.Result{Kind: data.Present, Value: v}, nil
	}

	for i := len(t.tables) - 1; i >= 0; i-- {
		v, ok, err := t.tables[i].Get(key)
		if err != nil {
			return data.Result{}, fmt.Errorf("failed to read table %s: %w", t.tables[i].Path(), err)
		}
		if ok {
			return data.Result{Kind: data.Present, Value: v}, nil
		}
	}

	return data.Result{Kind: data.Missing}, nil
}

// Put appends to the WAL, fsyncs, then inserts into the memtable. The
// value is durable when Put returns. A failed WAL append leaves the
// memtable untouched.
func (t *Tree) Put(key, value string) error {
	start := time.Now()
	err := t.apply(key, value)
	t.stats.recordPut(time.Since(start))

	return err
}

func (t *Tree) apply(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.wal.Append(key, value); err != nil {
		return fmt.Errorf("failed to append wal record: %w", err)
	}

	t.mem.Put(key, value)

	if t.mem.ShouldFlush() {
		if err := t.flushMemtable(); err != nil {
			return fmt.Errorf("failed to flush memtable: %w", err)
		}
	}

	if len(t.tables) >= t.cfg.CompactThreshold {
		if err := t.compact(); err != nil {
			return fmt.Errorf("failed to compact sstables: %w", err)
		}
	}

	return nil
}

// flushMemtable persists the memtable as a new SSTable. The manifest
// line goes first: a crash between it and the flush leaves the line
// pointing at a partial file, which the footer magic check catches on
// the next open. Only after the table is complete is the WAL truncated
// and the memtable cleared.
func (t *Tree) flushMemtable() error {
	sst, err := sstable.CreateIn(t.cfg.Directory)
	if err != nil {
		return err
	}

	if err := t.appendManifest(filepath.Base(sst.Path())); err != nil {
		return err
	}

	size := t.mem.Size()

	if err := t.mem.FlushToSSTable(sst); err != nil {
		return err
	}

	if err := t.wal.Clear(); err != nil {
		return err
	}

	t.mem.Clear()
	t.tables = append(t.tables, sst)

	log.WithFields(log.Fields{
		"table":  filepath.Base(sst.Path()),
		"bytes":  size,
		"tables": len(t.tables),
	}).Info("flushed memtable")

	return nil
}

// Stats returns a snapshot of the operation counters without taking
// the tree's lock.
func (t *Tree) Stats() Stats {
	return t.stats.snapshot()
}

// Close releases the WAL and every live table. The memtable is not
// flushed: its contents are still in the WAL and replay on next open.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := t.wal.Close()

	for _, tb := range t.tables {
		if err := tb.Close(); err != nil {
			result = multierr.Append(result, err)
		}
	}
	t.tables = nil

	return result
}
