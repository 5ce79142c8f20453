package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/closure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
	"github.com/lintang-b-s/navigatorx-eta/pkg/logger"
	"github.com/lintang-b-s/navigatorx-eta/pkg/sampler"
	"github.com/lintang-b-s/navigatorx-eta/pkg/speed"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	osmFile = flag.String("osm_file", "", "local .osm or .osm.pbf extract, overrides area.osm_file")
	output  = flag.String("out", "./data/od_dataset.csv", "csv output file")
	pairs   = flag.Int("pairs", 0, "number of synthetic trips, overrides dataset.pairs")
	seed    = flag.Uint64("trip_seed", 0, "seed of the trip generator, 0 seeds from the clock")
)

func main() {
	flag.Parse()
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}
	if *osmFile != "" {
		viper.Set("area.osm_file", *osmFile)
	}
	if *pairs > 0 {
		viper.Set("dataset.pairs", *pairs)
	}

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := usecases.NewTrainingConfig()
	if err != nil {
		log.Fatal("bad training configuration", zap.Error(err))
	}
	trainer := usecases.NewTrainingService(log, loader.NewFromConfig(log), cfg,
		usecases.NewModelStore(cfg.ModelPath, log), usecases.NewNetworkStore())

	normal, areaRef, err := trainer.BaselineGraph(context.Background())
	if err != nil {
		log.Fatal("failed to load road graph", zap.Error(err))
	}
	feria, res := closure.Restrict(normal, cfg.Closure)
	speed.EnsureEdgeSpeeds(feria, cfg.FallbackKph)

	tripSeed := *seed
	if tripSeed == 0 {
		tripSeed = uint64(time.Now().UnixNano())
	}
	synth := dataset.NewSynthesizer(sampler.New(cfg.SamplerSeed), rand.New(rand.NewSource(tripSeed)), cfg.Dataset, log)
	ds, err := synth.Synthesize(normal, feria, cfg.Pairs, cfg.Closure.Center)
	if err != nil {
		log.Fatal("failed to synthesize dataset", zap.Error(err))
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatal("failed to create output", zap.Error(err))
	}
	defer f.Close()
	if err := ds.WriteCSV(f); err != nil {
		log.Fatal("failed to write dataset", zap.Error(err))
	}

	log.Info("dataset written",
		zap.String("area", areaRef),
		zap.Int("removed_edges", res.RemovedEdges),
		zap.Int("records", ds.Len()),
		zap.Int("attempts", ds.Attempts),
		zap.String("out", *output))
}
