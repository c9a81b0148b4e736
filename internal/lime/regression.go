package lime

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxConditionNumber is the largest condition number of the normal matrix a
// fit is trusted with.
const maxConditionNumber = 1e12

// surrogateFit is a weighted linear model over the encoded dimensions.
type surrogateFit struct {
	// coefficients has one entry per encoded dimension; dimensions that
	// were not fit hold exactly 0.
	coefficients []float64
	intercept    float64
	r2           float64
	ridge        bool
}

// fitSurrogate regresses y on the given columns of x with per-row weights w.
// Columns are weighted-centred so the intercept is not penalized. When the
// system is under-determined or singular the fit is retried once with a
// ridge penalty; without a penalty, or when that also fails, it returns
// ErrRegression.
func fitSurrogate(x [][]float64, y, w []float64, columns []int, penalization float64) (surrogateFit, error) {
	n := len(y)
	dims := 0
	if n > 0 {
		dims = len(x[0])
	}
	fit := surrogateFit{coefficients: make([]float64, dims)}
	if n < minimumNeighborhood {
		return fit, fmt.Errorf("%w: %d samples, need at least %d", ErrRegression, n, minimumNeighborhood)
	}
	if floats.Sum(w) <= 0 {
		return fit, fmt.Errorf("%w: every sample has zero weight", ErrRegression)
	}

	yMean := stat.Mean(y, w)
	p := len(columns)
	if p == 0 {
		fit.intercept = yMean
		fit.r2 = weightedR2(x, y, w, fit)
		return fit, nil
	}

	means := make([]float64, p)
	col := make([]float64, n)
	for j, c := range columns {
		for i := range col {
			col[i] = x[i][c]
		}
		means[j] = stat.Mean(col, w)
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	effective := 0
	for i := 0; i < n; i++ {
		if w[i] > 0 {
			effective++
		}
		sw := math.Sqrt(w[i])
		for j, c := range columns {
			a.Set(i, j, sw*(x[i][c]-means[j]))
		}
		b.SetVec(i, sw*(y[i]-yMean))
	}

	var gram mat.SymDense
	gram.SymOuterK(1, a.T())
	var rhs mat.VecDense
	rhs.MulVec(a.T(), b)

	var beta *mat.VecDense
	ok := false
	if effective > p {
		beta, ok = solveNormal(&gram, &rhs, 0)
	}
	if !ok {
		if penalization <= 0 {
			return fit, fmt.Errorf("%w: singular system with %d effective samples for %d features and no penalization",
				ErrRegression, effective, p)
		}
		lambda := penalization * mat.Trace(&gram) / float64(p)
		if lambda <= 0 {
			lambda = penalization
		}
		beta, ok = solveNormal(&gram, &rhs, lambda)
		if !ok {
			return fit, fmt.Errorf("%w: system stays singular after ridge penalty %g", ErrRegression, lambda)
		}
		fit.ridge = true
	}

	fit.intercept = yMean
	for j, c := range columns {
		coef := beta.AtVec(j)
		if math.IsNaN(coef) || math.IsInf(coef, 0) {
			return fit, fmt.Errorf("%w: non-finite coefficient for dimension %d", ErrRegression, c)
		}
		fit.coefficients[c] = coef
		fit.intercept -= coef * means[j]
	}
	fit.r2 = weightedR2(x, y, w, fit)
	return fit, nil
}

// solveNormal solves (g + lambda*I) beta = rhs through a Cholesky
// factorization. ok is false for non-positive-definite or ill-conditioned
// systems.
func solveNormal(g *mat.SymDense, rhs *mat.VecDense, lambda float64) (*mat.VecDense, bool) {
	p := g.SymmetricDim()
	sys := mat.NewSymDense(p, nil)
	sys.CopySym(g)
	for i := 0; i < p; i++ {
		sys.SetSym(i, i, sys.At(i, i)+lambda)
	}

	var chol mat.Cholesky
	if !chol.Factorize(sys) {
		return nil, false
	}
	if c := chol.Cond(); math.IsNaN(c) || c > maxConditionNumber {
		return nil, false
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, rhs); err != nil {
		return nil, false
	}
	return &beta, true
}

// weightedR2 is the weighted coefficient of determination of fit on the
// training rows.
func weightedR2(x [][]float64, y, w []float64, fit surrogateFit) float64 {
	yMean := stat.Mean(y, w)
	var ssRes, ssTot float64
	for i := range y {
		pred := fit.intercept + floats.Dot(fit.coefficients, x[i])
		ssRes += w[i] * (y[i] - pred) * (y[i] - pred)
		ssTot += w[i] * (y[i] - yMean) * (y[i] - yMean)
	}
	if ssTot == 0 {
		if ssRes < 1e-12 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// varyingColumns returns the dimensions whose value is not constant over the
// rows with positive weight. Constant dimensions carry no signal and are
// never fit.
func varyingColumns(x [][]float64, w []float64) []int {
	if len(x) == 0 {
		return nil
	}
	var out []int
	for c := range x[0] {
		first, seen := 0.0, false
		for i := range x {
			if w[i] <= 0 {
				continue
			}
			if !seen {
				first, seen = x[i][c], true
				continue
			}
			if x[i][c] != first {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
