package estimator

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Regressor is a learned function from feature rows to a scalar. Predict must not mutate state.
type Regressor interface {
	Name() string
	Fit(x [][]float64, y []float64) error
	Predict(x [][]float64) ([]float64, error)
	Save(w io.Writer) error
	Load(r io.Reader) error
}

const (
	KindKNN   = "knn"
	KindRidge = "ridge"
)

var (
	ErrUnknownKind = errors.New("unknown regressor kind")
	ErrNotFitted   = errors.New("regressor is not fitted")
	ErrEmptyData   = errors.New("empty training data")
)

type Options struct {
	K           int
	RidgeLambda float64
}

func DefaultOptions() Options {
	return Options{
		K:           DefaultK,
		RidgeLambda: DefaultRidgeLambda,
	}
}

// NewRegressor returns an unfitted regressor of the given kind.
func NewRegressor(kind string, opts Options) (Regressor, error) {
	switch kind {
	case KindKNN:
		return NewKNNRegressor(opts.K), nil
	case KindRidge:
		return NewRidgeRegressor(opts.RidgeLambda), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// scaler standardizes every column to zero mean and unit variance.
type scaler struct {
	Mean []float64
	Std  []float64
}

func fitScaler(x [][]float64) scaler {
	dim := len(x[0])
	s := scaler{Mean: make([]float64, dim), Std: make([]float64, dim)}
	col := make([]float64, len(x))
	for j := 0; j < dim; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func checkShape(x [][]float64, dim int) error {
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureShape, i, len(row), dim)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d has a non finite value", ErrFeatureShape, i)
			}
		}
	}
	return nil
}

func checkTrainingData(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return ErrEmptyData
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrFeatureShape, len(x), len(y))
	}
	return checkShape(x, len(x[0]))
}
