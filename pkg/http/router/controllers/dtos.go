package controllers

import (
	"time"

	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
)

type predictRequest struct {
	DistanceM   *float64 `json:"distance_m" validate:"required,min=0"`
	BaseTimeSec *float64 `json:"base_time_sec" validate:"required,min=0"`
	IsThursday  *int     `json:"is_thursday" validate:"omitempty,oneof=0 1"`
}

func (r predictRequest) FeatureRow() estimator.FeatureRow {
	row := estimator.FeatureRow{
		DistanceM:   *r.DistanceM,
		BaseTimeSec: *r.BaseTimeSec,
	}
	if r.IsThursday != nil {
		row.ClosureFlag = *r.IsThursday
	}
	return row
}

type predictResponse struct {
	PredictedTimeSec float64 `json:"predicted_time_sec"`
	PredictedTimeMin float64 `json:"predicted_time_min"`
}

func NewPredictResponse(p estimator.Prediction) predictResponse {
	return predictResponse{
		PredictedTimeSec: p.Seconds,
		PredictedTimeMin: p.Minutes,
	}
}

type quoteRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"min=-90,max=90"`
	OriginLon      float64 `json:"origin_lon" validate:"min=-180,max=180"`
	DestinationLat float64 `json:"destination_lat" validate:"min=-90,max=90"`
	DestinationLon float64 `json:"destination_lon" validate:"min=-180,max=180"`
	IsThursday     int     `json:"is_thursday" validate:"oneof=0 1"`
}

type quoteResponse struct {
	Origin           int64   `json:"origin_node"`
	Destination      int64   `json:"destination_node"`
	DistanceM        float64 `json:"distance_m"`
	BaseTimeSec      float64 `json:"base_time_sec"`
	IsThursday       int     `json:"is_thursday"`
	PredictedTimeSec float64 `json:"predicted_time_sec"`
	PredictedTimeMin float64 `json:"predicted_time_min"`
	Path             string  `json:"path"`
}

func NewQuoteResponse(q usecases.Quote) quoteResponse {
	return quoteResponse{
		Origin:           int64(q.Origin),
		Destination:      int64(q.Destination),
		DistanceM:        q.DistanceM,
		BaseTimeSec:      q.BaseTimeSec,
		IsThursday:       q.IsThursday,
		PredictedTimeSec: q.Prediction.Seconds,
		PredictedTimeMin: q.Prediction.Minutes,
		Path:             q.Polyline,
	}
}

type trainResponse struct {
	Area         string  `json:"area"`
	Records      int     `json:"records"`
	Attempts     int     `json:"attempts"`
	RemovedEdges int     `json:"removed_edges"`
	Degenerate   bool    `json:"degenerate_closure"`
	Estimator    string  `json:"estimator"`
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	TrainSize    int     `json:"train_size"`
	TestSize     int     `json:"test_size"`
	ModelPath    string  `json:"model_path"`
	DurationSec  float64 `json:"duration_sec"`
}

func NewTrainResponse(r usecases.TrainingReport) trainResponse {
	return trainResponse{
		Area:         r.AreaRef,
		Records:      r.Records,
		Attempts:     r.Attempts,
		RemovedEdges: r.RemovedEdges,
		Degenerate:   r.Degenerate,
		Estimator:    r.Estimator,
		MAE:          r.Metrics.MAE,
		RMSE:         r.Metrics.RMSE,
		TrainSize:    r.Metrics.TrainSize,
		TestSize:     r.Metrics.TestSize,
		ModelPath:    r.ModelPath,
		DurationSec:  r.Duration.Seconds(),
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

func NewHealthResponse(service string, now time.Time) healthResponse {
	return healthResponse{
		Status:    "healthy",
		Timestamp: now.Format(time.RFC3339),
		Service:   service,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
