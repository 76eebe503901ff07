// Package pose extracts landmark sequences from video files and reduces them to vectors.
package pose

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNoVectors is returned when averaging an empty collection.
	ErrNoVectors = errors.New("no vectors to average")
	// ErrLengthMismatch is returned when vectors from different landmark layouts are combined.
	ErrLengthMismatch = errors.New("vector length mismatch")
)

// Vector is a flattened landmark vector: x, y, z per landmark in model order.
type Vector []float64

// Sequence is the ordered list of landmark vectors for the frames in which a pose was detected.
type Sequence []Vector

// Mean returns the elementwise arithmetic mean of the sequence.
// The second result is false when the sequence is empty.
func (s Sequence) Mean() (Vector, bool) {
	mean, err := Mean(s)
	if err != nil {
		return nil, false
	}
	return mean, true
}

// Mean returns the elementwise arithmetic mean of vs.
// All vectors must have the same length.
func Mean(vs []Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, ErrNoVectors
	}

	n := len(vs[0])
	sum := make(Vector, n)
	for i, v := range vs {
		if len(v) != n {
			return nil, fmt.Errorf("%w: vector %d has %d values, expected %d", ErrLengthMismatch, i, len(v), n)
		}
		floats.Add(sum, v)
	}

	floats.Scale(1/float64(len(vs)), sum)
	return sum, nil
}

// Distance returns the Euclidean (L2) distance between a and b.
func Distance(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	return floats.Distance(a, b, 2), nil
}
