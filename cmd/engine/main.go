package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/navigatorx-eta/pkg/http"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
	"github.com/lintang-b-s/navigatorx-eta/pkg/logger"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	port         = flag.Int("port", 0, "api port, overrides API_PORT")
	modelPath    = flag.String("model", "", "travel time model file, overrides estimator.model_path")
	useRateLimit = flag.Bool("rate_limit", false, "enable the per ip rate limiter")
	trainOnStart = flag.Bool("train", false, "run a training before serving")
)

func main() {
	flag.Parse()
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}
	if *port != 0 {
		viper.Set("API_PORT", *port)
	}
	if *modelPath != "" {
		viper.Set("estimator.model_path", *modelPath)
	}

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := usecases.NewTrainingConfig()
	if err != nil {
		log.Fatal("bad training configuration", zap.Error(err))
	}
	models := usecases.NewModelStore(cfg.ModelPath, log)
	networks := usecases.NewNetworkStore()

	trainingService := usecases.NewTrainingService(log, loader.NewFromConfig(log), cfg, models, networks)
	predictionService := usecases.NewPredictionService(log, models)
	quoteService := usecases.NewQuoteService(log, networks, predictionService, viper.GetFloat64("quote.snap_radius_m"))

	if *trainOnStart {
		if _, err := trainingService.Train(ctx); err != nil {
			log.Error("initial training failed", zap.Error(err))
		}
	}
	if _, ok := networks.Get(); !ok {
		if _, err := trainingService.RestoreNetwork(); err != nil {
			log.Warn("failed to restore road network from graph cache", zap.Error(err))
		}
	}

	api := http.NewServer(log)
	err = api.Use(ctx, log, *useRateLimit || viper.GetBool("USE_RATE_LIMIT"),
		trainingService, predictionService, quoteService)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
	}

	log.Info("Navigatorx ETA Server Stopped")
}
