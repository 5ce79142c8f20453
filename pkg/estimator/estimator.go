package estimator

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"golang.org/x/exp/rand"
)

var (
	ErrModelLoad    = errors.New("failed to load travel time model")
	ErrFeatureShape = errors.New("malformed feature row")
	ErrPrediction   = errors.New("failed to compute prediction")
)

// FeatureNames is the column order of every feature row.
var FeatureNames = []string{"dist_m", "base_time_sec", "is_thursday"}

const (
	DefaultTestSize  = 0.25
	DefaultSplitSeed = 42
)

type FeatureRow struct {
	DistanceM   float64
	BaseTimeSec float64
	ClosureFlag int
}

func (f FeatureRow) Vector() []float64 {
	return []float64{f.DistanceM, f.BaseTimeSec, float64(f.ClosureFlag)}
}

func (f FeatureRow) validate() error {
	if !util.IsFinite(f.DistanceM) || !util.IsFinite(f.BaseTimeSec) {
		return fmt.Errorf("%w: non finite feature value", ErrFeatureShape)
	}
	if f.DistanceM < 0 || f.BaseTimeSec < 0 {
		return fmt.Errorf("%w: negative distance or base time", ErrFeatureShape)
	}
	if f.ClosureFlag != 0 && f.ClosureFlag != 1 {
		return fmt.Errorf("%w: closure flag must be 0 or 1, got %d", ErrFeatureShape, f.ClosureFlag)
	}
	return nil
}

type Prediction struct {
	Seconds float64
	Minutes float64
}

func NewPrediction(seconds float64) Prediction {
	return Prediction{
		Seconds: seconds,
		Minutes: util.RoundFloat(util.SecondsToMinutes(seconds), 2),
	}
}

type Metrics struct {
	MAE       float64
	RMSE      float64
	TrainSize int
	TestSize  int
}

// Estimator is a regressor bound to the travel time feature schema.
// Once fitted or loaded it is read only and safe for concurrent PredictOne calls.
type Estimator struct {
	regressor Regressor
	features  []string
}

func New(kind string, opts Options) (*Estimator, error) {
	r, err := NewRegressor(kind, opts)
	if err != nil {
		return nil, err
	}
	return NewWithRegressor(r), nil
}

func NewWithRegressor(r Regressor) *Estimator {
	return &Estimator{
		regressor: r,
		features:  append([]string(nil), FeatureNames...),
	}
}

func (e *Estimator) Kind() string {
	return e.regressor.Name()
}

func (e *Estimator) Features() []string {
	return e.features
}

func (e *Estimator) Train(x [][]float64, y []float64) error {
	if err := e.regressor.Fit(x, y); err != nil {
		return fmt.Errorf("fit %s regressor: %w", e.regressor.Name(), err)
	}
	return nil
}

// Evaluate fits the regressor on a seeded shuffle split and reports the error on the held out part.
// Datasets too small to hold anything out are fitted whole, with zero metrics.
func (e *Estimator) Evaluate(x [][]float64, y []float64, testSize float64, seed uint64) (Metrics, error) {
	if len(x) != len(y) {
		return Metrics{}, fmt.Errorf("%w: %d rows but %d labels", ErrFeatureShape, len(x), len(y))
	}
	n := len(x)
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest <= 0 || n-nTest < 1 {
		if err := e.Train(x, y); err != nil {
			return Metrics{}, err
		}
		return Metrics{TrainSize: n}, nil
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	xTrain, yTrain := pick(x, y, trainIdx)
	xTest, yTest := pick(x, y, testIdx)
	if err := e.Train(xTrain, yTrain); err != nil {
		return Metrics{}, err
	}

	pred, err := e.regressor.Predict(xTest)
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrPrediction, err)
	}

	absSum, sqSum := 0.0, 0.0
	for i, p := range pred {
		d := p - yTest[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	return Metrics{
		MAE:       absSum / float64(nTest),
		RMSE:      math.Sqrt(sqSum / float64(nTest)),
		TrainSize: len(trainIdx),
		TestSize:  nTest,
	}, nil
}

func pick(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = x[j]
		py[i] = y[j]
	}
	return px, py
}

// PredictOne predicts the realized travel time of a single feature row.
func (e *Estimator) PredictOne(row FeatureRow) (Prediction, error) {
	if err := row.validate(); err != nil {
		return Prediction{}, util.WrapErrorf(err, util.ErrBadParamInput, "invalid feature row")
	}
	out, err := e.regressor.Predict([][]float64{row.Vector()})
	if err != nil {
		if errors.Is(err, ErrFeatureShape) {
			return Prediction{}, util.WrapErrorf(err, util.ErrBadParamInput, "invalid feature row")
		}
		return Prediction{}, util.WrapErrorf(fmt.Errorf("%w: %v", ErrPrediction, err), util.ErrInternalServerError,
			"prediction failed")
	}
	if len(out) != 1 || !util.IsFinite(out[0]) {
		return Prediction{}, util.WrapErrorf(ErrPrediction, util.ErrInternalServerError, "prediction is not finite")
	}
	return NewPrediction(out[0]), nil
}

type envelope struct {
	Kind     string
	Features []string
	Payload  []byte
}

func (e *Estimator) Save(w io.Writer) error {
	var payload bytes.Buffer
	if err := e.regressor.Save(&payload); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(envelope{
		Kind:     e.regressor.Name(),
		Features: e.features,
		Payload:  payload.Bytes(),
	})
}

// SaveFile writes the estimator bzip2 compressed to filename, creating parent directories.
// filename is replaced by renaming a fully written temporary file from the same directory.
func (e *Estimator) SaveFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}

	if err := e.writeCompressed(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filename)
}

func (e *Estimator) writeCompressed(f *os.File) error {
	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return err
	}
	if err := e.Save(bz); err != nil {
		bz.Close()
		return err
	}
	if err := bz.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// Load decodes an estimator written by Save. Any failure is reported as ErrModelLoad.
func Load(r io.Reader, opts Options) (*Estimator, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrModelLoad, err)
	}
	if !slices.Equal(env.Features, FeatureNames) {
		return nil, fmt.Errorf("%w: unexpected feature schema %v", ErrModelLoad, env.Features)
	}
	reg, err := NewRegressor(env.Kind, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if err := reg.Load(bytes.NewReader(env.Payload)); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrModelLoad, env.Kind, err)
	}
	return &Estimator{regressor: reg, features: env.Features}, nil
}

func LoadFile(filename string) (*Estimator, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, util.WrapErrorf(fmt.Errorf("%w: %v", ErrModelLoad, err), util.ErrModelUnavailable,
			"model file %s cannot be opened", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(bufio.NewReader(f), nil)
	if err != nil {
		return nil, util.WrapErrorf(fmt.Errorf("%w: %v", ErrModelLoad, err), util.ErrModelUnavailable,
			"model file %s is not readable", filename)
	}
	defer bz.Close()

	est, err := Load(bz, DefaultOptions())
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrModelUnavailable, "model file %s is corrupt", filename)
	}
	return est, nil
}
