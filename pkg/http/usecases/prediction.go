package usecases

import (
	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"go.uber.org/zap"
)

type PredictionService struct {
	log    *zap.Logger
	models *ModelStore
}

func NewPredictionService(log *zap.Logger, models *ModelStore) *PredictionService {
	return &PredictionService{
		log:    log,
		models: models,
	}
}

// Predict returns the estimated realized travel time of one trip.
func (ps *PredictionService) Predict(row estimator.FeatureRow) (estimator.Prediction, error) {
	est, err := ps.models.Get()
	if err != nil {
		return estimator.Prediction{}, err
	}
	return est.PredictOne(row)
}
