package storage

import (
	"encoding/binary"
	"math"
)

// Embedding BLOB codec: little-endian float64 components, no header.
// A NULL column maps to a nil slice.

func encodeEmbedding(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	const size = 8
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint64(out[i*size:(i+1)*size], math.Float64bits(x))
	}
	return out
}

func decodeEmbedding(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	const size = 8
	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*size : (i+1)*size]))
	}
	return out
}
