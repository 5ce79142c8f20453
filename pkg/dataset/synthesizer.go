package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/sampler"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	ErrNotEnoughNodes = errors.New("not enough nodes to form origin-destination pairs")
	ErrInvalidPairs   = errors.New("pair count must not be negative")
)

const (
	DefaultPairs       = 80
	maxAttemptsPerPair = 10
	noiseFloor         = 0.8
)

type Config struct {
	PoolMaxNodes int
	PoolRadiusM  float64

	// realized time inflation when the closure is active / inactive.
	ClosedFactorMin, ClosedFactorMax float64
	OpenFactorMin, OpenFactorMax     float64

	NoiseStdDev float64
	Weight      routing.WeightKey
}

func DefaultConfig() Config {
	return Config{
		PoolMaxNodes:    sampler.DefaultMaxNodes,
		PoolRadiusM:     sampler.DefaultRadiusM,
		ClosedFactorMin: 1.2,
		ClosedFactorMax: 1.6,
		OpenFactorMin:   1.0,
		OpenFactorMax:   1.1,
		NoiseStdDev:     0.05,
		Weight:          routing.WeightLength,
	}
}

// Record is one synthetic trip. Distance and base time are measured on the regime graph.
type Record struct {
	Orig        da.NodeID
	Dest        da.NodeID
	DistM       float64
	BaseTimeSec float64
	TimeRealSec float64
	IsThursday  int
	FeriaActive int
}

type Dataset struct {
	Records  []Record
	Attempts int
}

func (d *Dataset) Len() int {
	return len(d.Records)
}

// Features returns the (dist_m, base_time_sec, is_thursday) rows.
func (d *Dataset) Features() [][]float64 {
	x := make([][]float64, len(d.Records))
	for i, r := range d.Records {
		x[i] = []float64{r.DistM, r.BaseTimeSec, float64(r.IsThursday)}
	}
	return x
}

func (d *Dataset) Labels() []float64 {
	y := make([]float64, len(d.Records))
	for i, r := range d.Records {
		y[i] = r.TimeRealSec
	}
	return y
}

var csvHeader = []string{"orig", "dest", "dist_m", "base_time_sec", "time_real_sec", "is_thursday", "feria_active"}

func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range d.Records {
		row := []string{
			strconv.FormatInt(int64(r.Orig), 10),
			strconv.FormatInt(int64(r.Dest), 10),
			strconv.FormatFloat(r.DistM, 'f', -1, 64),
			strconv.FormatFloat(r.BaseTimeSec, 'f', -1, 64),
			strconv.FormatFloat(r.TimeRealSec, 'f', -1, 64),
			strconv.Itoa(r.IsThursday),
			strconv.Itoa(r.FeriaActive),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Synthesizer builds origin-destination trips with simulated realized times.
// The node pool comes from the fixed seed sampler, the trips from tripRNG.
type Synthesizer struct {
	sampler *sampler.Sampler
	tripRNG *rand.Rand
	cfg     Config
	logger  *zap.Logger
}

func NewSynthesizer(s *sampler.Sampler, tripRNG *rand.Rand, cfg Config, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		sampler: s,
		tripRNG: tripRNG,
		cfg:     cfg,
		logger:  logger,
	}
}

// Synthesize collects up to nPairs records, giving up after 10*nPairs attempts.
func (s *Synthesizer) Synthesize(normal, feria *da.Graph, nPairs int, center geo.Coordinate) (Dataset, error) {
	if nPairs < 0 {
		return Dataset{}, fmt.Errorf("%w: got %d", ErrInvalidPairs, nPairs)
	}
	pool := s.sampler.Sample(normal, &center, s.cfg.PoolMaxNodes, s.cfg.PoolRadiusM)
	if len(pool) < 2 {
		return Dataset{}, fmt.Errorf("%w: pool has %d nodes", ErrNotEnoughNodes, len(pool))
	}

	ds := Dataset{Records: make([]Record, 0, nPairs)}
	for len(ds.Records) < nPairs && ds.Attempts < nPairs*maxAttemptsPerPair {
		ds.Attempts++
		o, d := s.pickPair(pool)

		baseline := routing.ShortestRouteStats(normal, o, d, s.cfg.Weight)
		if !baseline.Found() {
			continue
		}

		closed := s.tripRNG.Intn(2) == 1
		regime := normal
		if closed {
			regime = feria
		}
		stats := routing.ShortestRouteStats(regime, o, d, s.cfg.Weight)
		if !stats.Found() {
			continue
		}

		flag := 0
		factor := s.uniform(s.cfg.OpenFactorMin, s.cfg.OpenFactorMax)
		if closed {
			flag = 1
			factor = s.uniform(s.cfg.ClosedFactorMin, s.cfg.ClosedFactorMax)
		}
		noise := math.Max(1.0+s.cfg.NoiseStdDev*s.tripRNG.NormFloat64(), noiseFloor)

		ds.Records = append(ds.Records, Record{
			Orig:        o,
			Dest:        d,
			DistM:       stats.Distance,
			BaseTimeSec: stats.TravelTime,
			TimeRealSec: stats.TravelTime * factor * noise,
			IsThursday:  flag,
			FeriaActive: flag,
		})
	}

	if s.logger != nil {
		s.logger.Sugar().Infof("synthesized %d/%d records in %d attempts", len(ds.Records), nPairs, ds.Attempts)
	}
	return ds, nil
}

// pickPair draws two distinct pool entries.
func (s *Synthesizer) pickPair(pool []da.NodeID) (da.NodeID, da.NodeID) {
	i := s.tripRNG.Intn(len(pool))
	j := s.tripRNG.Intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return pool[i], pool[j]
}

func (s *Synthesizer) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.tripRNG.Float64()
}
