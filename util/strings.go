package util

import "unsafe"

// StringToBytes returns the bytes backing s without copying.
// The result must not be mutated.
func StringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// BytesToString returns a string sharing b's backing array.
// b must not be mutated afterwards.
func BytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
