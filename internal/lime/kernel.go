package lime

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// proximityKernel weights a sample by its distance to the original in the
// encoded space.
type proximityKernel struct {
	width float64
}

func newProximityKernel(width float64) proximityKernel {
	return proximityKernel{width: width}
}

// distance is the Euclidean distance between encoded vectors. On binary
// masks it is the square root of the Hamming distance.
func (k proximityKernel) distance(original, perturbed []float64) float64 {
	return floats.Distance(original, perturbed, 2)
}

func (k proximityKernel) weight(distance float64) float64 {
	return math.Exp(-(distance * distance) / (k.width * k.width))
}

// proximityFilter keeps the rows whose weight reaches threshold. Row 0 is
// the original input and is always kept.
func proximityFilter(weights []float64, threshold float64) []int {
	keep := make([]int, 0, len(weights))
	for i, w := range weights {
		if i == 0 || w >= threshold {
			keep = append(keep, i)
		}
	}
	return keep
}
