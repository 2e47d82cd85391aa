package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/api/apperrors"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, -1}, b: []float32{-1, 1}, want: -1},
		{name: "zero vector", a: []float32{0.3, 0.4}, b: []float32{0, 0}, want: 0},
		{name: "empty left", a: nil, b: []float32{1, 2}, want: 0},
		{name: "both empty", a: []float32{}, b: []float32{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{0.1, 0.7, -0.2}, {0.5, -0.3, 0.9}},
		{{3, 4}, {4, 3}},
		{{1, 0, 0, 0}, {0.25, 0.25, 0.25, 0.25}},
	}
	for _, p := range pairs {
		ab, err := Cosine(p[0], p[1])
		require.NoError(t, err)
		ba, err := Cosine(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestCosine_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1e-3, 2e-3, 3e-3},
		{-5, 12},
		{0.57735026, 0.57735026, 0.57735026},
	}
	for _, v := range vectors {
		got, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-6)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2, 3}, []float32{1, 2})
	assert.ErrorIs(t, err, apperrors.ErrInvalidVector)
}
