package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/navigatorx-eta/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const ServiceName = "navigatorx-eta"

type estimationAPI struct {
	trainingService   TrainingService
	predictionService PredictionService
	quoteService      QuoteService
	log               *zap.Logger

	validator *validator.Validate
	trans     ut.Translator
}

func New(trainingService TrainingService, predictionService PredictionService, quoteService QuoteService,
	log *zap.Logger) *estimationAPI {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &estimationAPI{
		trainingService:   trainingService,
		predictionService: predictionService,
		quoteService:      quoteService,
		log:               log,
		validator:         validate,
		trans:             trans,
	}
}

func (api *estimationAPI) Routes(group *helper.RouteGroup) {
	group.POST("/train", api.train)
	group.POST("/predict", api.predict)
	group.GET("/quote", api.quote)
	group.GET("/health", api.health)
}

// train
//
//	@Summary		train the travel time model
//	@Description	rebuilds the road graph, simulates the closure day, synthesizes trips and fits the model.
//	@Tags			estimation
//	@Produce		json
//	@Router			/train [post]
//	@Success		200	{object}	trainResponse
//	@Failure		409	{object}	errorBody
//	@Failure		500	{object}	errorBody
func (api *estimationAPI) train(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	report, err := api.trainingService.Train(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "model trained",
		"data": NewTrainResponse(report)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// predict
//
//	@Summary		predict the realized travel time of a trip
//	@Tags			estimation
//	@Accept			json
//	@Produce		json
//	@Param			body	body	predictRequest	true	"distance_m, base_time_sec and optional is_thursday (0 or 1)"
//	@Router			/predict [post]
//	@Success		200	{object}	predictResponse
//	@Failure		400	{object}	errorBody
//	@Failure		503	{object}	errorBody
func (api *estimationAPI) predict(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request predictRequest
	if err := api.readJSON(r, &request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
	if err := api.validate(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	pred, err := api.predictionService.Predict(request.FeatureRow())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"success": true, "data": NewPredictResponse(pred)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// quote
//
//	@Summary		route two points and predict the trip time
//	@Tags			estimation
//	@Produce		json
//	@Param			origin_lat		query	number	true	"origin latitude"
//	@Param			origin_lon		query	number	true	"origin longitude"
//	@Param			destination_lat	query	number	true	"destination latitude"
//	@Param			destination_lon	query	number	true	"destination longitude"
//	@Param			is_thursday		query	integer	false	"closure day flag, 0 or 1"
//	@Router			/quote [get]
//	@Success		200	{object}	quoteResponse
//	@Failure		400	{object}	errorBody
//	@Failure		404	{object}	errorBody
//	@Failure		503	{object}	errorBody
func (api *estimationAPI) quote(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request quoteRequest
		err     error
	)

	query := r.URL.Query()

	request.OriginLat, err = strconv.ParseFloat(query.Get("origin_lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("origin_lat is required and must be a valid float"))
		return
	}
	request.OriginLon, err = strconv.ParseFloat(query.Get("origin_lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("origin_lon is required and must be a valid float"))
		return
	}
	request.DestinationLat, err = strconv.ParseFloat(query.Get("destination_lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("destination_lat is required and must be a valid float"))
		return
	}
	request.DestinationLon, err = strconv.ParseFloat(query.Get("destination_lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("destination_lon is required and must be a valid float"))
		return
	}
	if v := query.Get("is_thursday"); v != "" {
		request.IsThursday, err = strconv.Atoi(v)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("is_thursday must be 0 or 1"))
			return
		}
	}
	if err := api.validate(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	q, err := api.quoteService.Quote(request.OriginLat, request.OriginLon, request.DestinationLat,
		request.DestinationLon, request.IsThursday)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"success": true, "data": NewQuoteResponse(q)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *estimationAPI) health(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.writeJSON(w, http.StatusOK, envelope{"success": true,
		"data": NewHealthResponse(ServiceName, time.Now())}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
