package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// PlaceholderVector derives a deterministic unit vector from the text alone.
// The digest is stretched over the full dimension by hashing the seed digest
// together with a block counter, so two different texts land far apart while
// the same text always maps to the same point.
func PlaceholderVector(text string, dimension int) []float32 {
	if dimension <= 0 {
		return nil
	}

	seed := sha256.Sum256([]byte(text))
	vector := make([]float32, dimension)

	var block [sha256.Size]byte
	var counter [8]byte
	for i := 0; i < dimension; i++ {
		if i%sha256.Size == 0 {
			binary.BigEndian.PutUint64(counter[:], uint64(i/sha256.Size))
			h := sha256.New()
			h.Write(seed[:])
			h.Write(counter[:])
			h.Sum(block[:0])
		}
		// Center each byte around zero so the vector is not biased into one
		// orthant of the embedding space.
		vector[i] = float32(block[i%sha256.Size]) - 127.5
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vector
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}
