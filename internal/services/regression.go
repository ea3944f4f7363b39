package services

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// errInsufficientTrainingData reports a matrix too small to fit.
var errInsufficientTrainingData = errors.New("insufficient data for training")

// LinearRegression is an ordinary least squares model fit fresh for every
// forecast call. Construct, fit, predict, discard: no state is shared across
// requests and the fit is fully deterministic.
type LinearRegression struct {
	// coefficients holds the intercept at index 0 followed by one weight
	// per feature column.
	coefficients []float64
	trained      bool
}

// NewLinearRegression creates an untrained model.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit solves the least squares problem over the design matrix (with an
// implicit intercept column) and returns the in-sample R² score. The solve
// goes through the SVD pseudo-inverse, so collinear feature columns (a
// constant calendar column over a short window, for example) still yield the
// minimum-norm solution instead of an error.
func (m *LinearRegression) Fit(features [][]float64, targets []float64) (float64, error) {
	n := len(features)
	if n < 2 || n != len(targets) {
		return 0, errInsufficientTrainingData
	}
	cols := len(features[0]) + 1

	design := mat.NewDense(n, cols, nil)
	for i, row := range features {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	response := mat.NewVecDense(n, append([]float64(nil), targets...))

	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return 0, errors.New("least squares solve: factorization failed")
	}
	rank := svd.Rank(1e-10)
	if rank == 0 {
		return 0, errInsufficientTrainingData
	}

	var solution mat.VecDense
	svd.SolveVecTo(&solution, response, rank)

	m.coefficients = make([]float64, cols)
	copy(m.coefficients, solution.RawVector().Data)
	m.trained = true

	return m.score(features, targets), nil
}

// Predict evaluates the fitted model for one feature vector.
func (m *LinearRegression) Predict(features []float64) (float64, error) {
	if !m.trained {
		return 0, errors.New("model not trained")
	}
	if len(features)+1 != len(m.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.coefficients)-1, len(features))
	}

	prediction := m.coefficients[0]
	for j, v := range features {
		prediction += m.coefficients[j+1] * v
	}
	return prediction, nil
}

// score computes the in-sample R², clamped to [0, 1] for reporting.
func (m *LinearRegression) score(features [][]float64, targets []float64) float64 {
	fitted := make([]float64, len(features))
	for i, row := range features {
		v, err := m.Predict(row)
		if err != nil {
			return 0
		}
		fitted[i] = v
	}

	r2 := stat.RSquaredFrom(fitted, targets, nil)
	if r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}
