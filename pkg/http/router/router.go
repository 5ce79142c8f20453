package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/navigatorx-eta/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/navigatorx-eta/pkg/http/server"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

//	@title			Navigatorx ETA API
//	@version		1.0
//	@description	Closure aware delivery travel time estimation over openstreetmap road graphs.

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(
	ctx context.Context,
	useRateLimit bool,
	trainingService controllers.TrainingService,
	predictionService controllers.PredictionService,
	quoteService controllers.QuoteService,
) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)

	group := router_helper.NewRouteGroup(router, "/api")

	estimationRoutes := controllers.New(trainingService, predictionService, quoteService, api.log)
	estimationRoutes.Routes(group)

	mwChain := []alice.Constructor{Tracing(controllers.ServiceName), corsHandler.Handler, EnforceJSONHandler,
		api.recoverPanic, RealIP, Heartbeat("healthz"), Labels, Logger(api.log)}
	if useRateLimit {
		mwChain = append(mwChain, Limit(ctx))
	}
	return alice.New(mwChain...).Then(router)
}

func (api *API) Run(
	ctx context.Context,
	config http_server.Config,

	useRateLimit bool,
	trainingService controllers.TrainingService,
	predictionService controllers.PredictionService,
	quoteService controllers.QuoteService,
) error {
	api.log.Info("Run httprouter API")

	handler := api.Handler(ctx, useRateLimit, trainingService, predictionService, quoteService)
	srv := http_server.New(ctx, handler, config, false)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		_ = srv.Shutdown(context.Background())
		return ctx.Err()
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
