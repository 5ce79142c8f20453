package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
	"github.com/lintang-b-s/navigatorx-eta/pkg/logger"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	osmFile   = flag.String("osm_file", "", "local .osm or .osm.pbf extract, overrides area.osm_file")
	modelPath = flag.String("model", "", "output model file, overrides estimator.model_path")
	kind      = flag.String("kind", "", "regressor kind (knn or ridge), overrides estimator.kind")
	pairs     = flag.Int("pairs", 0, "number of synthetic trips, overrides dataset.pairs")
)

func main() {
	flag.Parse()
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}
	if *osmFile != "" {
		viper.Set("area.osm_file", *osmFile)
	}
	if *modelPath != "" {
		viper.Set("estimator.model_path", *modelPath)
	}
	if *kind != "" {
		viper.Set("estimator.kind", *kind)
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

	report, err := trainer.Train(context.Background())
	if err != nil {
		log.Fatal("training failed", zap.Error(err))
	}

	fmt.Printf("area: %s\nrecords: %d (attempts %d)\nremoved edges: %d\n%s mae: %.3f s, rmse: %.3f s\nmodel: %s\n",
		report.AreaRef, report.Records, report.Attempts, report.RemovedEdges, report.Estimator,
		report.Metrics.MAE, report.Metrics.RMSE, report.ModelPath)
}
