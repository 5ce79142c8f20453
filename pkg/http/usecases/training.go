package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/closure"
	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/sampler"
	"github.com/lintang-b-s/navigatorx-eta/pkg/speed"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	ErrTrainingInProgress = errors.New("a training run is already in progress")
	ErrEmptyDataset       = errors.New("no reachable origin-destination pair was synthesized")
)

type TrainingReport struct {
	AreaRef      string
	Records      int
	Attempts     int
	RemovedEdges int
	Degenerate   bool
	Estimator    string
	Metrics      estimator.Metrics
	ModelPath    string
	Duration     time.Duration
}

type TrainingService struct {
	log      *zap.Logger
	loader   GraphLoader
	cfg      TrainingConfig
	models   *ModelStore
	networks *NetworkStore

	// tripRNG returns the generator for origin-destination draws of one run.
	tripRNG func() *rand.Rand

	running sync.Mutex
}

func NewTrainingService(log *zap.Logger, gl GraphLoader, cfg TrainingConfig, models *ModelStore,
	networks *NetworkStore) *TrainingService {
	return &TrainingService{
		log:      log,
		loader:   gl,
		cfg:      cfg,
		models:   models,
		networks: networks,
		tripRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		},
	}
}

// WithTripRNG replaces the wall clock seeded trip generator.
func (ts *TrainingService) WithTripRNG(newRNG func() *rand.Rand) *TrainingService {
	ts.tripRNG = newRNG
	return ts
}

// Train runs load, normalize, closure, synthesis and fitting, then persists the model.
// Concurrent runs are rejected with ErrConflict.
func (ts *TrainingService) Train(ctx context.Context) (TrainingReport, error) {
	if !ts.running.TryLock() {
		return TrainingReport{}, util.WrapErrorf(ErrTrainingInProgress, util.ErrConflict, "training already running")
	}
	defer ts.running.Unlock()

	start := time.Now()
	report, err := ts.train(ctx)
	if err != nil {
		ts.log.Error("training failed", zap.Error(err))
		return TrainingReport{}, util.WrapErrorf(err, util.ErrInternalServerError, "training failed")
	}
	report.Duration = time.Since(start)
	ts.log.Info("training finished",
		zap.String("area", report.AreaRef),
		zap.Int("records", report.Records),
		zap.Int("attempts", report.Attempts),
		zap.Float64("mae", report.Metrics.MAE),
		zap.Float64("rmse", report.Metrics.RMSE),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (ts *TrainingService) train(ctx context.Context) (TrainingReport, error) {
	if err := ts.cfg.Validate(); err != nil {
		return TrainingReport{}, err
	}
	normal, areaRef, err := ts.BaselineGraph(ctx)
	if err != nil {
		return TrainingReport{}, err
	}

	feria, res := ts.closureGraph(normal)

	synth := dataset.NewSynthesizer(sampler.New(ts.cfg.SamplerSeed), ts.tripRNG(), ts.cfg.Dataset, ts.log)
	ds, err := synth.Synthesize(normal, feria, ts.cfg.Pairs, ts.cfg.Closure.Center)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("synthesize dataset: %w", err)
	}
	if ds.Len() == 0 {
		return TrainingReport{}, fmt.Errorf("%w after %d attempts", ErrEmptyDataset, ds.Attempts)
	}

	est, err := estimator.New(ts.cfg.EstimatorKind, ts.cfg.EstimatorOptions)
	if err != nil {
		return TrainingReport{}, err
	}
	metrics, err := est.Evaluate(ds.Features(), ds.Labels(), ts.cfg.TestSize, ts.cfg.SplitSeed)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("train estimator: %w", err)
	}
	if err := est.SaveFile(ts.cfg.ModelPath); err != nil {
		return TrainingReport{}, fmt.Errorf("save model: %w", err)
	}

	ts.models.Put(est)
	ts.networks.Set(NewRoadNetwork(areaRef, normal, feria, res))

	return TrainingReport{
		AreaRef:      areaRef,
		Records:      ds.Len(),
		Attempts:     ds.Attempts,
		RemovedEdges: res.RemovedEdges,
		Degenerate:   res.Degenerate,
		Estimator:    est.Kind(),
		Metrics:      metrics,
		ModelPath:    ts.cfg.ModelPath,
	}, nil
}

func (ts *TrainingService) closureGraph(normal *da.Graph) (*da.Graph, closure.Result) {
	feria, res := closure.Restrict(normal, ts.cfg.Closure)
	if res.Degenerate {
		ts.log.Warn("closure removed every edge, closure day graph is edgeless",
			zap.Float64("buffer_m", ts.cfg.Closure.BufferM))
	}
	speed.EnsureEdgeSpeeds(feria, ts.cfg.FallbackKph)
	ts.log.Info("closure applied",
		zap.String("projection", res.Projection.String()),
		zap.Int("removed_edges", res.RemovedEdges),
		zap.Int("remaining_edges", feria.NumberOfEdges()))
	return feria, res
}

// RestoreNetwork fills the network store from the graph cache, so quotes are answered before
// the first training run of the process. It reports false when no cache file exists.
func (ts *TrainingService) RestoreNetwork() (bool, error) {
	if ts.cfg.GraphCache == "" {
		return false, nil
	}
	if _, err := os.Stat(ts.cfg.GraphCache); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	normal, err := da.ReadGraph(ts.cfg.GraphCache)
	if err != nil {
		return false, fmt.Errorf("read graph cache: %w", err)
	}

	feria, res := ts.closureGraph(normal)
	ts.networks.Set(NewRoadNetwork(ts.cfg.GraphCache, normal, feria, res))
	ts.log.Info("road network restored from cache", zap.String("path", ts.cfg.GraphCache),
		zap.Int("vertices", normal.NumberOfVertices()))
	return true, nil
}

// BaselineGraph returns the normalized largest weakly connected component of the configured area,
// read from the graph cache when one exists.
func (ts *TrainingService) BaselineGraph(ctx context.Context) (*da.Graph, string, error) {
	if ts.cfg.GraphCache != "" {
		if _, err := os.Stat(ts.cfg.GraphCache); err == nil {
			g, err := da.ReadGraph(ts.cfg.GraphCache)
			if err == nil {
				ts.log.Info("road graph read from cache", zap.String("path", ts.cfg.GraphCache))
				return g, ts.cfg.GraphCache, nil
			}
			ts.log.Warn("ignoring unreadable graph cache", zap.String("path", ts.cfg.GraphCache), zap.Error(err))
		}
	}

	g, areaRef, err := ts.loader.Load(ctx, ts.cfg.Area)
	if err != nil {
		return nil, "", fmt.Errorf("load road graph: %w", err)
	}
	g = g.LargestWeaklyConnectedComponent()
	speed.EnsureEdgeSpeeds(g, ts.cfg.FallbackKph)

	if ts.cfg.GraphCache != "" {
		if err := g.WriteGraph(ts.cfg.GraphCache); err != nil {
			ts.log.Warn("failed to write graph cache", zap.String("path", ts.cfg.GraphCache), zap.Error(err))
		}
	}
	return g, areaRef, nil
}
