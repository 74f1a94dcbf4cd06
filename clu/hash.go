package clu

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// HashFunc is a collision-resistant-enough, content-stable mapping from a
// Sequence to a short opaque string. Identical byte content must produce
// identical hashes.
type HashFunc interface {
	Hash(seq Sequence) string
}

// XXHash64 is the default HashFunc: it runs xxhash over the
// little-endian IEEE754 encoding of every coordinate in the sequence.
type XXHash64 struct{}

// Hash implements HashFunc.
func (XXHash64) Hash(seq Sequence) string {
	h := xxhash.New()
	buf := make([]byte, 8)
	for _, pt := range seq {
		for _, v := range pt {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			_, _ = h.Write(buf)
		}
		// Separator between points so e.g. [[1,2]] and [[1],[2]] hash distinctly.
		_, _ = h.Write([]byte{0xff})
	}
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], h.Sum64())
	return hex(out[:])
}

const hexDigits = "0123456789abcdef"

func hex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
