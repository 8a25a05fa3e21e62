package util

import "testing"

func TestHash32(t *testing.T) {
	if h := Hash32(nil); h != 0 {
		t.Errorf("Hash32(nil) = %#x but expected 0", h)
	}

	inputs := []string{"a", "abc", "key0", "value0", "the quick brown fox"}

	seen := make(map[uint32]string, len(inputs))
	for _, in := range inputs {
		h := Hash32([]byte(in))

		if again := Hash32([]byte(in)); again != h {
			t.Errorf("Hash32(%q) not deterministic: %#x vs %#x", in, h, again)
		}

		if prev, ok := seen[h]; ok {
			t.Errorf("Hash32 collision between %q and %q", prev, in)
		}
		seen[h] = in
	}
}

func TestHash64(t *testing.T) {
	// xxhash of the empty input with seed 0.
	if h := Hash64(nil); h != 0xef46db3751d8e999 {
		t.Errorf("Hash64(nil) = %#x but expected 0xef46db3751d8e999", h)
	}

	if Hash64([]byte("abc")) == Hash64([]byte("abd")) {
		t.Error("Hash64 should differ for different inputs")
	}
}

func TestStringBytesRoundTrip(t *testing.T) {
	tests := []string{"", "a", "hello world", "\x00\x01\x02"}

	for _, s := range tests {
		if got := BytesToString(StringToBytes(s)); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}
