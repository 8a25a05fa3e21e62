package bloom

import (
	"fmt"
	"testing"
)

func TestNoFalseNegatives(t *testing.T) {
	const n = 1000

	f := NewWithCapacity(n)

	for i := 0; i < n; i++ {
		f.Add(fmt.Sprintf("key%d", i))
	}

	for i := 0; i < n; i++ {
		if !f.MayContain(fmt.Sprintf("key%d", i)) {
			t.Fatalf("added key%d reported absent", i)
		}
	}
}

func TestEmptyFilter(t *testing.T) {
	f := NewWithCapacity(0)

	if f.Len() != 0 {
		t.Errorf("empty filter has %d bits", f.Len())
	}

	// An empty filter cannot exclude anything.
	if !f.MayContain("anything") {
		t.Error("empty filter excluded a key")
	}
}

func TestCapacitySizing(t *testing.T) {
	tests := []struct {
		n    int
		bits int
	}{
		{1, 10},
		{32, 320},
		{4096, 40960},
	}

	for _, test := range tests {
		if f := NewWithCapacity(test.n); f.Len() != test.bits {
			t.Errorf("NewWithCapacity(%d).Len() = %d but expected %d", test.n, f.Len(), test.bits)
		}
	}
}

func TestFromBitsRoundTrip(t *testing.T) {
	f := NewWithCapacity(100)
	for i := 0; i < 100; i++ {
		f.Add(fmt.Sprintf("key%d", i))
	}

	g := FromBits(f.Bits())

	for i := 0; i < 100; i++ {
		if !g.MayContain(fmt.Sprintf("key%d", i)) {
			t.Fatalf("restored filter lost key%d", i)
		}
	}
}

func TestFalsePositiveRate(t *testing.T) {
	const n = 1000

	f := NewWithCapacity(n)
	for i := 0; i < n; i++ {
		f.Add(fmt.Sprintf("key%d", i))
	}

	// 10 bits/key and 7 probes target roughly 1%; allow generous slack.
	var fp int
	for i := 0; i < n; i++ {
		if f.MayContain(fmt.Sprintf("absent%d", i)) {
			fp++
		}
	}

	if fp > n/20 {
		t.Errorf("false positive rate too high: %d/%d", fp, n)
	}
}
