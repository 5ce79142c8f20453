package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/closure"
	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
	"github.com/lintang-b-s/navigatorx-eta/pkg/sampler"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

const (
	gridSize  = 7
	centerLat = -16.5
	centerLon = -68.189
)

type fakeLoader struct {
	graph *da.Graph
	err   error
	calls int
}

func (f *fakeLoader) Load(_ context.Context, _ loader.Area) (*da.Graph, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.graph.Clone(), "test grid", nil
}

func gridID(i, j int) da.NodeID {
	return da.NodeID(i*gridSize + j + 1)
}

func gridCoordinate(i, j int) geo.Coordinate {
	offset := float64(gridSize/2) * 0.001
	return geo.NewCoordinate(centerLat-offset+float64(i)*0.001, centerLon-offset+float64(j)*0.001)
}

// gridGraph is a two way street grid ~111m apart centered on the closure, plus one isolated node.
func gridGraph() *da.Graph {
	g := da.NewGraph()
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			c := gridCoordinate(i, j)
			g.AddVertex(gridID(i, j), c.Lat, c.Lon)
		}
	}
	g.AddVertex(9999, centerLat+0.5, centerLon)

	street := func(a, b da.NodeID) {
		for _, pair := range [][2]da.NodeID{{a, b}, {b, a}} {
			e := da.NewEdge(1, []string{"40"}, nil)
			e.SetLength(111)
			g.AddEdge(pair[0], pair[1], e)
		}
	}
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			if j+1 < gridSize {
				street(gridID(i, j), gridID(i, j+1))
			}
			if i+1 < gridSize {
				street(gridID(i, j), gridID(i+1, j))
			}
		}
	}
	return g
}

func testConfig(t *testing.T) TrainingConfig {
	return TrainingConfig{
		Area:             loader.DefaultArea(),
		Closure:          closure.NewZone(centerLat, centerLon, 150),
		FallbackKph:      30,
		SamplerSeed:      sampler.DefaultSeed,
		Dataset:          dataset.DefaultConfig(),
		Pairs:            30,
		EstimatorKind:    estimator.KindKNN,
		EstimatorOptions: estimator.DefaultOptions(),
		TestSize:         estimator.DefaultTestSize,
		SplitSeed:        estimator.DefaultSplitSeed,
		ModelPath:        filepath.Join(t.TempDir(), "model", "eta.model"),
	}
}

type services struct {
	training   *TrainingService
	prediction *PredictionService
	quote      *QuoteService
	models     *ModelStore
	networks   *NetworkStore
}

func newServices(gl GraphLoader, cfg TrainingConfig) services {
	log := zap.NewNop()
	models := NewModelStore(cfg.ModelPath, log)
	networks := NewNetworkStore()
	prediction := NewPredictionService(log, models)
	training := NewTrainingService(log, gl, cfg, models, networks).WithTripRNG(func() *rand.Rand {
		return rand.New(rand.NewSource(7))
	})
	return services{
		training:   training,
		prediction: prediction,
		quote:      NewQuoteService(log, networks, prediction, 150),
		models:     models,
		networks:   networks,
	}
}

func errorCode(t *testing.T, err error) error {
	t.Helper()
	var uerr *util.Error
	require.True(t, errors.As(err, &uerr), "expected *util.Error, got %v", err)
	return uerr.Code()
}

func TestTrain(t *testing.T) {
	cfg := testConfig(t)
	svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)

	report, err := svc.training.Train(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test grid", report.AreaRef)
	assert.Equal(t, estimator.KindKNN, report.Estimator)
	assert.Equal(t, cfg.ModelPath, report.ModelPath)
	assert.Greater(t, report.Records, 0)
	assert.LessOrEqual(t, report.Records, cfg.Pairs)
	assert.LessOrEqual(t, report.Attempts, 10*cfg.Pairs)
	assert.Greater(t, report.RemovedEdges, 0)
	assert.False(t, report.Degenerate)
	assert.Equal(t, report.Records, report.Metrics.TrainSize+report.Metrics.TestSize)
	assert.FileExists(t, cfg.ModelPath)

	network, ok := svc.networks.Get()
	require.True(t, ok)
	assert.False(t, network.Normal.HasVertex(9999), "isolated node is outside the largest component")
	assert.Less(t, network.Feria.NumberOfEdges(), network.Normal.NumberOfEdges())

	pred, err := svc.prediction.Predict(estimator.FeatureRow{DistanceM: 1000, BaseTimeSec: 120, ClosureFlag: 1})
	require.NoError(t, err)
	assert.Greater(t, pred.Seconds, 0.0)
	assert.Equal(t, util.RoundFloat(pred.Seconds/60, 2), pred.Minutes)
}

func TestTrainIsReproducible(t *testing.T) {
	cfg := testConfig(t)
	first, err := newServices(&fakeLoader{graph: gridGraph()}, cfg).training.Train(context.Background())
	require.NoError(t, err)
	second, err := newServices(&fakeLoader{graph: gridGraph()}, cfg).training.Train(context.Background())
	require.NoError(t, err)

	first.Duration, second.Duration = 0, 0
	assert.Equal(t, first, second)
}

func TestTrainErrors(t *testing.T) {
	t.Run("loader failure", func(t *testing.T) {
		svc := newServices(&fakeLoader{err: loader.ErrEmptyGraph}, testConfig(t))
		_, err := svc.training.Train(context.Background())
		assert.ErrorIs(t, err, loader.ErrEmptyGraph)
		assert.Equal(t, util.ErrInternalServerError, errorCode(t, err))
	})

	t.Run("unknown estimator", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.EstimatorKind = "gbm"
		svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)
		_, err := svc.training.Train(context.Background())
		assert.ErrorIs(t, err, estimator.ErrUnknownKind)
		assert.Equal(t, util.ErrInternalServerError, errorCode(t, err))
		assert.NoFileExists(t, cfg.ModelPath)
	})

	t.Run("negative pair count", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Pairs = -1
		svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)
		_, err := svc.training.Train(context.Background())
		assert.ErrorIs(t, err, ErrInvalidTrainingConfig)
		assert.Equal(t, util.ErrInternalServerError, errorCode(t, err))
		assert.NoFileExists(t, cfg.ModelPath)
	})

	t.Run("run already in progress", func(t *testing.T) {
		svc := newServices(&fakeLoader{graph: gridGraph()}, testConfig(t))
		svc.training.running.Lock()
		defer svc.training.running.Unlock()

		_, err := svc.training.Train(context.Background())
		assert.ErrorIs(t, err, ErrTrainingInProgress)
		assert.Equal(t, util.ErrConflict, errorCode(t, err))
	})
}

func TestNewTrainingConfig(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]any
		wantErr   bool
	}{
		{name: "defaults"},
		{name: "zero pairs", overrides: map[string]any{"dataset.pairs": 0}},
		{name: "negative pairs", overrides: map[string]any{"dataset.pairs": -3}, wantErr: true},
		{name: "test size of one", overrides: map[string]any{"estimator.test_size": 1.0}, wantErr: true},
		{name: "empty model path", overrides: map[string]any{"estimator.model_path": ""}, wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			util.SetDefaults()
			for k, v := range tt.overrides {
				viper.Set(k, v)
			}

			cfg, err := NewTrainingConfig()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrainingConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, viper.GetInt("dataset.pairs"), cfg.Pairs)
		})
	}
}

func TestBaselineGraphCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.GraphCache = filepath.Join(t.TempDir(), "area.graph")
	gl := &fakeLoader{graph: gridGraph()}
	svc := newServices(gl, cfg)

	g, ref, err := svc.training.BaselineGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test grid", ref)
	assert.FileExists(t, cfg.GraphCache)

	gl.err = errors.New("offline")
	cached, ref, err := svc.training.BaselineGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.GraphCache, ref)
	assert.Equal(t, 1, gl.calls)
	assert.Equal(t, g.NumberOfVertices(), cached.NumberOfVertices())
	assert.Equal(t, g.NumberOfEdges(), cached.NumberOfEdges())
	cached.ForEachEdge(func(_ da.Index, e *da.Edge) {
		speedKph, ok := e.GetSpeedKph()
		assert.True(t, ok)
		assert.Equal(t, 40.0, speedKph)
	})
}

func TestModelStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.model")
	store := NewModelStore(path, zap.NewNop())
	assert.Equal(t, path, store.Path())

	_, err := store.Get()
	assert.ErrorIs(t, err, estimator.ErrModelLoad)
	assert.Equal(t, util.ErrModelUnavailable, errorCode(t, err))

	x := [][]float64{{100, 10, 0}, {200, 20, 1}, {300, 30, 0}}
	y := []float64{12, 30, 36}
	first, err := estimator.New(estimator.KindKNN, estimator.Options{K: 1})
	require.NoError(t, err)
	require.NoError(t, first.Train(x, y))
	require.NoError(t, first.SaveFile(path))

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, estimator.KindKNN, got.Kind())
	again, err := store.Get()
	require.NoError(t, err)
	assert.Same(t, got, again)

	second, err := estimator.New(estimator.KindRidge, estimator.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, second.Train(x, y))
	require.NoError(t, second.SaveFile(path))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	reloaded, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, estimator.KindRidge, reloaded.Kind())

	require.NoError(t, os.Truncate(path, 0))
	require.NoError(t, os.Chtimes(path, later.Add(time.Minute), later.Add(time.Minute)))
	kept, err := store.Get()
	require.NoError(t, err)
	assert.Same(t, reloaded, kept)

	require.NoError(t, os.WriteFile(path, []byte("corrupt"), 0o644))
	_, err = NewModelStore(path, zap.NewNop()).Get()
	assert.ErrorIs(t, err, estimator.ErrModelLoad)
	assert.Equal(t, util.ErrModelUnavailable, errorCode(t, err))
}

func TestModelStoreDuringRetrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eta.model")
	store := NewModelStore(path, zap.NewNop())

	x := [][]float64{{100, 10, 0}, {200, 20, 1}, {300, 30, 0}}
	y := []float64{12, 30, 36}
	est, err := estimator.New(estimator.KindKNN, estimator.Options{K: 1})
	require.NoError(t, err)
	require.NoError(t, est.Train(x, y))
	require.NoError(t, est.SaveFile(path))
	primed, err := store.Get()
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := store.Get(); err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
		}
	}()
	for i := 0; i < 20; i++ {
		require.NoError(t, est.SaveFile(path))
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatalf("model store failed during retrain: %v", err)
	default:
	}
	assert.NotNil(t, primed)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "eta.model", entries[0].Name())
}

func TestRestoreNetwork(t *testing.T) {
	t.Run("no cache configured", func(t *testing.T) {
		svc := newServices(&fakeLoader{graph: gridGraph()}, testConfig(t))
		restored, err := svc.training.RestoreNetwork()
		require.NoError(t, err)
		assert.False(t, restored)
		_, ok := svc.networks.Get()
		assert.False(t, ok)
	})

	t.Run("cache file missing", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GraphCache = filepath.Join(t.TempDir(), "area.graph")
		svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)
		restored, err := svc.training.RestoreNetwork()
		require.NoError(t, err)
		assert.False(t, restored)
	})

	t.Run("corrupt cache", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GraphCache = filepath.Join(t.TempDir(), "area.graph")
		require.NoError(t, os.WriteFile(cfg.GraphCache, []byte("not a graph"), 0o644))
		svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)
		restored, err := svc.training.RestoreNetwork()
		assert.Error(t, err)
		assert.False(t, restored)
		_, ok := svc.networks.Get()
		assert.False(t, ok)
	})

	t.Run("quotes after restart", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.GraphCache = filepath.Join(t.TempDir(), "area.graph")
		_, err := newServices(&fakeLoader{graph: gridGraph()}, cfg).training.Train(context.Background())
		require.NoError(t, err)

		gl := &fakeLoader{err: errors.New("offline")}
		restarted := newServices(gl, cfg)
		restored, err := restarted.training.RestoreNetwork()
		require.NoError(t, err)
		assert.True(t, restored)
		assert.Equal(t, 0, gl.calls)

		network, ok := restarted.networks.Get()
		require.True(t, ok)
		assert.Equal(t, cfg.GraphCache, network.AreaRef)
		assert.Positive(t, network.Closure.RemovedEdges)

		corner := gridCoordinate(0, 0)
		opposite := gridCoordinate(gridSize-1, gridSize-1)
		q, err := restarted.quote.Quote(corner.Lat, corner.Lon, opposite.Lat, opposite.Lon, 1)
		require.NoError(t, err)
		assert.InDelta(t, 12*111.0, q.DistanceM, 1e-6)
		assert.Greater(t, q.Prediction.Seconds, 0.0)
	})
}

func TestQuote(t *testing.T) {
	cfg := testConfig(t)
	svc := newServices(&fakeLoader{graph: gridGraph()}, cfg)

	_, err := svc.quote.Quote(centerLat, centerLon, centerLat+0.002, centerLon, 0)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.Equal(t, util.ErrModelUnavailable, errorCode(t, err))

	_, err = svc.training.Train(context.Background())
	require.NoError(t, err)

	corner := gridCoordinate(0, 0)
	opposite := gridCoordinate(gridSize-1, gridSize-1)

	testCases := []struct {
		name         string
		isThursday   int
		wantDistance float64
	}{
		{name: "regular day", isThursday: 0, wantDistance: 12 * 111},
		{name: "closure day routes around the closed streets", isThursday: 1, wantDistance: 12 * 111},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.quote.Quote(corner.Lat+0.00001, corner.Lon, opposite.Lat, opposite.Lon-0.00001, tt.isThursday)
			require.NoError(t, err)
			assert.Equal(t, gridID(0, 0), q.Origin)
			assert.Equal(t, gridID(gridSize-1, gridSize-1), q.Destination)
			assert.InDelta(t, tt.wantDistance, q.DistanceM, 1e-6)
			assert.InDelta(t, tt.wantDistance/(40/3.6), q.BaseTimeSec, 1e-6)
			assert.Equal(t, tt.isThursday, q.IsThursday)
			assert.Greater(t, q.Prediction.Seconds, 0.0)
			assert.NotEmpty(t, q.Polyline)
		})
	}

	_, err = svc.quote.Quote(centerLat+1, centerLon+1, opposite.Lat, opposite.Lon, 0)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Equal(t, util.ErrBadParamInput, errorCode(t, err))
}
