package http

import (
	"context"

	"github.com/lintang-b-s/navigatorx-eta/pkg/http/router"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/navigatorx-eta/pkg/http/server"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use runs the api until ctx is canceled or the listener fails.
func (s *Server) Use(
	ctx context.Context,
	log *zap.Logger,

	useRateLimit bool,
	trainingService controllers.TrainingService,
	predictionService controllers.PredictionService,
	quoteService controllers.QuoteService,
) error {
	config := http_server.Config{
		Port:    viper.GetInt("API_PORT"),
		Timeout: viper.GetDuration("API_TIMEOUT"),
	}

	api := router.NewAPI(log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(gctx, config, useRateLimit, trainingService, predictionService, quoteService)
	})
	return g.Wait()
}
