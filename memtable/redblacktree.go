package memtable

import (
	"io"
	"os"

	"github.com/emirpasic/gods/trees/redblacktree"

	"lsmkv/bloom"
	"lsmkv/sstable"
	"lsmkv/wal"
)

type (
	RedBlackTree struct {
		tree           *redblacktree.Tree
		size           int
		flushThreshold int
	}

	RedBlackTreeIterator struct {
		iter redblacktree.Iterator
	}
)

var (
	_ Table    = (*RedBlackTree)(nil)
	_ Iterator = (*RedBlackTreeIterator)(nil)
)

func NewRedBlackTree(flushThreshold int) *RedBlackTree {
	return &RedBlackTree{
		tree:           redblacktree.NewWithStringComparator(),
		flushThreshold: flushThreshold,
	}
}

func (t *RedBlackTree) Get(key string) (string, bool) {
	v, ok := t.tree.Get(key)
	if !ok {
		return "", false
	}

	return v.(string), true
}

func (t *RedBlackTree) Put(key, value string) {
	if old, ok := t.tree.Get(key); ok {
		t.size += len(value) - len(old.(string))
	} else {
		t.size += len(key) + len(value)
	}

	if t.size < 0 {
		panic("memtable: size accounting went negative")
	}

	t.tree.Put(key, value)
}

func (t *RedBlackTree) Size() int { return t.size }

func (t *RedBlackTree) Len() int { return t.tree.Size() }

func (t *RedBlackTree) ShouldFlush() bool { return t.size > t.flushThreshold }

func (t *RedBlackTree) Clear() {
	t.tree.Clear()
	t.size = 0
}

func (t *RedBlackTree) Iterator() Iterator {
	return &RedBlackTreeIterator{iter: t.tree.Iterator()}
}

func (t *RedBlackTree) RestoreFromWAL(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	r, err := wal.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		t.Put(rec.Key, rec.Value)
	}
}

func (t *RedBlackTree) FlushToSSTable(sst *sstable.Table) error {
	// An empty table still yields a valid file: empty key range,
	// zero-bit bloom filter, no data, no index.
	var minKey, maxKey string
	if t.Len() > 0 {
		minKey = t.tree.Left().Key.(string)
		maxKey = t.tree.Right().Key.(string)
	}

	if err := sst.WriteHeader(minKey, maxKey); err != nil {
		return err
	}

	filter := bloom.NewWithCapacity(t.Len())
	for it := t.Iterator(); it.Next(); {
		filter.Add(it.Key())
	}

	if err := sst.WriteBloom(filter); err != nil {
		return err
	}

	for it := t.Iterator(); it.Next(); {
		if err := sst.WriteEntry(it.Key(), it.Value()); err != nil {
			return err
		}
	}

	if err := sst.WriteIndex(); err != nil {
		return err
	}

	return sst.WriteFooter()
}

func (t *RedBlackTreeIterator) Next() bool { return t.iter.Next() }

func (t *RedBlackTreeIterator) Key() string { return t.iter.Key().(string) }

func (t *RedBlackTreeIterator) Value() string { return t.iter.Value().(string) }
