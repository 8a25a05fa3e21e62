package memtable

import (
	"fmt"
	"path/filepath"
	"testing"

	"lsmkv/wal"
)

func TestPutGet(t *testing.T) {
	m := NewRedBlackTree(4096)

	if _, ok := m.Get("missing"); ok {
		t.Error("empty table returned a value")
	}

	m.Put("foo", "bar")

	v, ok := m.Get("foo")
	if !ok || v != "bar" {
		t.Errorf("Get(foo) = (%q, %v) but expected (bar, true)", v, ok)
	}
}

func TestSizeAccounting(t *testing.T) {
	m := NewRedBlackTree(4096)

	m.Put("k", "v1")
	if m.Size() != 3 {
		t.Errorf("size = %d but expected 3", m.Size())
	}

	// An overwrite swaps only the value bytes.
	m.Put("k", "v2")
	if m.Size() != len("k")+len("v2") {
		t.Errorf("size after overwrite = %d but expected %d", m.Size(), len("k")+len("v2"))
	}

	m.Put("k", "")
	if m.Size() != 1 {
		t.Errorf("size after empty overwrite = %d but expected 1", m.Size())
	}

	m.Put("other", "value")
	if m.Size() != 1+len("other")+len("value") {
		t.Errorf("size = %d", m.Size())
	}
}

func TestShouldFlush(t *testing.T) {
	m := NewRedBlackTree(10)

	m.Put("12345", "12345")
	if m.ShouldFlush() {
		t.Error("should not flush at exactly the threshold")
	}

	m.Put("x", "")
	if !m.ShouldFlush() {
		t.Error("should flush above the threshold")
	}
}

func TestClear(t *testing.T) {
	m := NewRedBlackTree(4096)

	m.Put("a", "1")
	m.Put("b", "2")
	m.Clear()

	if m.Len() != 0 || m.Size() != 0 {
		t.Errorf("after clear: len %d size %d", m.Len(), m.Size())
	}

	if _, ok := m.Get("a"); ok {
		t.Error("cleared table returned a value")
	}
}

func TestIterationOrder(t *testing.T) {
	m := NewRedBlackTree(1 << 20)

	for _, k := range []string{"pear", "apple", "zebra", "mango", "fig"} {
		m.Put(k, k)
	}

	var prev string
	var n int
	for it := m.Iterator(); it.Next(); n++ {
		if n > 0 && it.Key() <= prev {
			t.Errorf("iteration out of order: %q after %q", it.Key(), prev)
		}
		prev = it.Key()
	}

	if n != 5 {
		t.Errorf("iterated %d entries but expected 5", n)
	}
}

func TestRestoreFromWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsm.wal")

	w, err := wal.Open(path)
	if err != nil {
		t.Fatalf("failed to open wal: %v", err)
	}

	records := []struct{ key, value string }{
		{"a", "1"},
		{"b", "2"},
		{"a", "overwritten"},
		{"c", ""},
	}

	for _, r := range records {
		if err := w.Append(r.key, r.value); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close wal: %v", err)
	}

	m := NewRedBlackTree(4096)
	if err := m.RestoreFromWAL(path); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}

	expected := map[string]string{"a": "overwritten", "b": "2", "c": ""}

	if m.Len() != len(expected) {
		t.Fatalf("restored %d keys but expected %d", m.Len(), len(expected))
	}

	for k, want := range expected {
		if v, ok := m.Get(k); !ok || v != want {
			t.Errorf("Get(%q) = (%q, %v) but expected (%q, true)", k, v, ok, want)
		}
	}
}

func TestRestoreMissingWAL(t *testing.T) {
	m := NewRedBlackTree(4096)

	if err := m.RestoreFromWAL(filepath.Join(t.TempDir(), "absent.wal")); err != nil {
		t.Errorf("missing wal should not error: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("restored %d keys from a missing wal", m.Len())
	}
}

func TestRestoreSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsm.wal")

	w, err := wal.Open(path)
	if err != nil {
		t.Fatalf("failed to open wal: %v", err)
	}

	var want int
	for i := 0; i < 10; i++ {
		k := fmt.Sprintf("key%d", i)
		v := fmt.Sprintf("value%d", i)
		want += len(k) + len(v)

		if err := w.Append(k, v); err != nil {
			t.Fatalf("failed to append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close wal: %v", err)
	}

	m := NewRedBlackTree(4096)
	if err := m.RestoreFromWAL(path); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}

	if m.Size() != want {
		t.Errorf("size = %d but expected %d", m.Size(), want)
	}
}
