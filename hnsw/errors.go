package hnsw

import "errors"

// ErrDimensionMismatch is returned by Insert and SearchKnn when the supplied
// vector's length does not equal the graph's fixed dimensionality. It never
// mutates graph state.
var ErrDimensionMismatch = errors.New("hnsw: vector dimension mismatch")

// ErrInvalidConfig is returned by New when a geometric parameter is out of
// range.
var ErrInvalidConfig = errors.New("hnsw: invalid configuration")
