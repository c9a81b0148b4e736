package lime

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// selectFeatures keeps the k columns most associated with y, measured by the
// absolute weighted Pearson correlation. Ties go to the lower index. The
// result is in ascending column order.
func selectFeatures(x [][]float64, y, w []float64, columns []int, k int) []int {
	if k >= len(columns) {
		return columns
	}
	type ranked struct {
		column int
		score  float64
	}
	scores := make([]ranked, len(columns))
	col := make([]float64, len(y))
	for j, c := range columns {
		for i := range col {
			col[i] = x[i][c]
		}
		r := stat.Correlation(col, y, w)
		if math.IsNaN(r) {
			r = 0
		}
		scores[j] = ranked{column: c, score: math.Abs(r)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].column < scores[j].column
	})

	out := make([]int, k)
	for i := range out {
		out[i] = scores[i].column
	}
	sort.Ints(out)
	return out
}
