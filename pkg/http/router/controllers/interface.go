package controllers

import (
	"context"

	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/http/usecases"
)

type TrainingService interface {
	Train(ctx context.Context) (usecases.TrainingReport, error)
}

type PredictionService interface {
	Predict(row estimator.FeatureRow) (estimator.Prediction, error)
}

type QuoteService interface {
	Quote(origLat, origLon, dstLat, dstLon float64, isThursday int) (usecases.Quote, error)
}
