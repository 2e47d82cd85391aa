// Package similarity scores vectors against each other.
package similarity

import (
	"fmt"
	"math"

	"agrimarket/api/apperrors"
)

// Cosine returns dot(a, b) / (|a| * |b|) in [-1, 1].
//
// An empty or zero-magnitude vector scores 0. Vectors of different lengths
// return ErrInvalidVector; they are never truncated or padded.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: length %d does not match %d", apperrors.ErrInvalidVector, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push |score| just past 1
	return math.Max(-1, math.Min(1, score)), nil
}
