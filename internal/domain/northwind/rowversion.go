package northwind

import "bytes"

// InitialRowVersion is the version stamped on a newly inserted row.
func InitialRowVersion() []byte { return []byte{0x01} }

// NextRowVersion treats v as a big-endian counter and returns v+1 in a new
// slice. An empty version yields the initial version; overflow widens the
// counter by one byte.
func NextRowVersion(v []byte) []byte {
	if len(v) == 0 {
		return InitialRowVersion()
	}
	next := make([]byte, len(v))
	copy(next, v)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			return next
		}
	}
	return append([]byte{0x01}, next...)
}

func SameRowVersion(a, b []byte) bool {
	return len(a) > 0 && bytes.Equal(a, b)
}
