package usecases

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/navigatorx-eta/pkg/closure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/dataset"
	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/loader"
	"github.com/spf13/viper"
)

type TrainingConfig struct {
	Area       loader.Area
	GraphCache string

	Closure     closure.Zone
	FallbackKph float64

	SamplerSeed uint64
	Dataset     dataset.Config
	Pairs       int

	EstimatorKind    string
	EstimatorOptions estimator.Options
	TestSize         float64
	SplitSeed        uint64
	ModelPath        string
}

var ErrInvalidTrainingConfig = errors.New("invalid training configuration")

// NewTrainingConfig reads the training configuration from viper and validates it.
func NewTrainingConfig() (TrainingConfig, error) {
	dsCfg := dataset.DefaultConfig()
	dsCfg.PoolMaxNodes = viper.GetInt("sampler.max_nodes")
	dsCfg.PoolRadiusM = viper.GetFloat64("sampler.radius_m")

	cfg := TrainingConfig{
		Area: loader.Area{
			PlaceName: viper.GetString("area.place_name"),
			Center:    geo.NewCoordinate(viper.GetFloat64("area.center_lat"), viper.GetFloat64("area.center_lon")),
			DeltaDeg:  viper.GetFloat64("area.delta_deg"),
			OSMFile:   viper.GetString("area.osm_file"),
		},
		GraphCache: viper.GetString("area.graph_cache"),
		Closure: closure.NewZone(viper.GetFloat64("closure.center_lat"), viper.GetFloat64("closure.center_lon"),
			viper.GetFloat64("closure.buffer_m")),
		FallbackKph: viper.GetFloat64("speed.fallback_kph"),
		SamplerSeed: viper.GetUint64("sampler.seed"),
		Dataset:     dsCfg,
		Pairs:       viper.GetInt("dataset.pairs"),

		EstimatorKind: viper.GetString("estimator.kind"),
		EstimatorOptions: estimator.Options{
			K:           viper.GetInt("estimator.k"),
			RidgeLambda: viper.GetFloat64("estimator.ridge_lambda"),
		},
		TestSize:  viper.GetFloat64("estimator.test_size"),
		SplitSeed: viper.GetUint64("estimator.split_seed"),
		ModelPath: viper.GetString("estimator.model_path"),
	}
	return cfg, cfg.Validate()
}

func (c TrainingConfig) Validate() error {
	if c.Pairs < 0 {
		return fmt.Errorf("%w: dataset.pairs must not be negative, got %d", ErrInvalidTrainingConfig, c.Pairs)
	}
	if c.TestSize < 0 || c.TestSize >= 1 {
		return fmt.Errorf("%w: estimator.test_size must be in [0, 1), got %v", ErrInvalidTrainingConfig, c.TestSize)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("%w: estimator.model_path is empty", ErrInvalidTrainingConfig)
	}
	return nil
}
