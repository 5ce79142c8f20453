package estimator

import (
	"encoding/gob"
	"io"
	"math"
	"sort"

	"github.com/lintang-b-s/navigatorx-eta/pkg/concurrent"
)

const (
	DefaultK = 5

	parallelPredictRows = 256
)

// KNNRegressor predicts the mean label of the k nearest standardized training rows.
type KNNRegressor struct {
	k      int
	scaler scaler
	x      [][]float64
	y      []float64
}

func NewKNNRegressor(k int) *KNNRegressor {
	if k <= 0 {
		k = DefaultK
	}
	return &KNNRegressor{k: k}
}

func (m *KNNRegressor) Name() string {
	return KindKNN
}

func (m *KNNRegressor) Fit(x [][]float64, y []float64) error {
	if err := checkTrainingData(x, y); err != nil {
		return err
	}
	m.scaler = fitScaler(x)
	m.x = make([][]float64, len(x))
	for i, row := range x {
		m.x[i] = m.scaler.transform(row)
	}
	m.y = append([]float64(nil), y...)
	return nil
}

type neighbor struct {
	idx  int
	dist float64
}

func (m *KNNRegressor) Predict(x [][]float64) ([]float64, error) {
	if len(m.x) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkShape(x, len(m.scaler.Mean)); err != nil {
		return nil, err
	}

	if len(x) >= parallelPredictRows {
		return concurrent.Map(x, 0, m.predictRow), nil
	}
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.predictRow(row)
	}
	return out, nil
}

// predictRow is the uniform mean label of the k nearest training rows, earlier rows first on ties.
func (m *KNNRegressor) predictRow(row []float64) float64 {
	q := m.scaler.transform(row)
	neighbors := make([]neighbor, len(m.x))
	for i, tr := range m.x {
		neighbors[i] = neighbor{idx: i, dist: squaredDistance(q, tr)}
	}
	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].dist < neighbors[b].dist
	})

	k := min(m.k, len(m.x))
	sum := 0.0
	for _, nb := range neighbors[:k] {
		sum += m.y[nb.idx]
	}
	return sum / float64(k)
}

func squaredDistance(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

type knnState struct {
	K      int
	Scaler scaler
	X      [][]float64
	Y      []float64
}

func (m *KNNRegressor) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(knnState{K: m.k, Scaler: m.scaler, X: m.x, Y: m.y})
}

func (m *KNNRegressor) Load(r io.Reader) error {
	var st knnState
	if err := gob.NewDecoder(r).Decode(&st); err != nil {
		return err
	}
	if st.K <= 0 || len(st.X) != len(st.Y) || len(st.X) == 0 || math.IsNaN(sumOf(st.Y)) {
		return ErrNotFitted
	}
	m.k, m.scaler, m.x, m.y = st.K, st.Scaler, st.X, st.Y
	return nil
}

func sumOf(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
