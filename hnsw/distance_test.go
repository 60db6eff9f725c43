package hnsw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSquaredEuclidean(t *testing.T) {
	require.InDelta(t, float32(0), SquaredEuclidean(Vector{1, 2, 3}, Vector{1, 2, 3}), 1e-6)
	require.InDelta(t, float32(3), SquaredEuclidean(Vector{0, 0, 0}, Vector{1, 1, 1}), 1e-6)
}

func TestEuclidean(t *testing.T) {
	require.InDelta(t, float32(5), Euclidean(Vector{0, 0}, Vector{3, 4}), 1e-5)
}

func TestCosine(t *testing.T) {
	require.InDelta(t, float32(0), Cosine(Vector{1, 0}, Vector{1, 0}), 1e-6)
	require.InDelta(t, float32(1), Cosine(Vector{1, 0}, Vector{0, 1}), 1e-6)
}

func TestCosine_ZeroVector(t *testing.T) {
	require.Equal(t, float32(1), Cosine(Vector{0, 0}, Vector{1, 1}))
}
