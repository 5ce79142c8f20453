package estimator

import (
	"encoding/gob"
	"errors"
	"io"

	"gonum.org/v1/gonum/mat"
)

const DefaultRidgeLambda = 1e-3

// RidgeRegressor is a closed form ridge regression over standardized features with an unpenalized intercept.
type RidgeRegressor struct {
	lambda    float64
	scaler    scaler
	coef      []float64
	intercept float64
	fitted    bool
}

func NewRidgeRegressor(lambda float64) *RidgeRegressor {
	if lambda < 0 {
		lambda = DefaultRidgeLambda
	}
	return &RidgeRegressor{lambda: lambda}
}

func (m *RidgeRegressor) Name() string {
	return KindRidge
}

// Fit solves (XᵀX + λI) w = Xᵀ(y - ȳ) on centered, standardized features.
func (m *RidgeRegressor) Fit(x [][]float64, y []float64) error {
	if err := checkTrainingData(x, y); err != nil {
		return err
	}
	n, dim := len(x), len(x[0])
	m.scaler = fitScaler(x)

	yMean := sumOf(y) / float64(n)
	design := mat.NewDense(n, dim, nil)
	target := mat.NewVecDense(n, nil)
	for i, row := range x {
		design.SetRow(i, m.scaler.transform(row))
		target.SetVec(i, y[i]-yMean)
	}

	var gram mat.Dense
	gram.Mul(design.T(), design)
	for j := 0; j < dim; j++ {
		gram.Set(j, j, gram.At(j, j)+m.lambda)
	}
	var rhs mat.VecDense
	rhs.MulVec(design.T(), target)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return err
		}
	}

	m.coef = make([]float64, dim)
	for j := range m.coef {
		m.coef[j] = w.AtVec(j)
	}
	m.intercept = yMean
	m.fitted = true
	return nil
}

func (m *RidgeRegressor) Predict(x [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkShape(x, len(m.coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		z := m.scaler.transform(row)
		v := m.intercept
		for j, c := range m.coef {
			v += c * z[j]
		}
		out[i] = v
	}
	return out, nil
}

type ridgeState struct {
	Lambda    float64
	Scaler    scaler
	Coef      []float64
	Intercept float64
}

func (m *RidgeRegressor) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(ridgeState{
		Lambda:    m.lambda,
		Scaler:    m.scaler,
		Coef:      m.coef,
		Intercept: m.intercept,
	})
}

func (m *RidgeRegressor) Load(r io.Reader) error {
	var st ridgeState
	if err := gob.NewDecoder(r).Decode(&st); err != nil {
		return err
	}
	if len(st.Coef) == 0 || len(st.Coef) != len(st.Scaler.Mean) {
		return ErrNotFitted
	}
	m.lambda, m.scaler, m.coef, m.intercept = st.Lambda, st.Scaler, st.Coef, st.Intercept
	m.fitted = true
	return nil
}
