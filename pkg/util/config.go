package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ReadConfig loads ./data/config.yaml (optional) on top of the defaults below.
// Environment variables override both, with "." replaced by "_" (AREA_PLACE_NAME, ...).
func ReadConfig() error {
	_ = godotenv.Load()

	SetDefaults()

	viper.SetConfigName("config")
	viper.AddConfigPath("./data/")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}

func SetDefaults() {
	viper.SetDefault("area.place_name", "Zona 16 de Julio, El Alto, La Paz, Bolivia")
	viper.SetDefault("area.center_lat", -16.500)
	viper.SetDefault("area.center_lon", -68.189)
	viper.SetDefault("area.delta_deg", 0.015)
	viper.SetDefault("area.osm_file", "")
	viper.SetDefault("area.graph_cache", "")

	viper.SetDefault("nominatim.url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("osm_api.url", "https://api.openstreetmap.org/api/0.6")
	viper.SetDefault("http_client.timeout", "60s")
	viper.SetDefault("http_client.user_agent", "navigatorx-eta/1.0")

	viper.SetDefault("closure.center_lat", -16.500)
	viper.SetDefault("closure.center_lon", -68.189)
	viper.SetDefault("closure.buffer_m", 700.0)

	viper.SetDefault("speed.fallback_kph", 30.0)

	viper.SetDefault("sampler.seed", 42)
	viper.SetDefault("sampler.max_nodes", 150)
	viper.SetDefault("sampler.radius_m", 1500.0)

	viper.SetDefault("dataset.pairs", 80)

	viper.SetDefault("estimator.kind", "knn")
	viper.SetDefault("estimator.k", 5)
	viper.SetDefault("estimator.ridge_lambda", 1e-3)
	viper.SetDefault("estimator.test_size", 0.25)
	viper.SetDefault("estimator.split_seed", 42)
	viper.SetDefault("estimator.model_path", "./data/travel_time_model.bin")

	viper.SetDefault("quote.snap_radius_m", 250.0)

	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("API_TIMEOUT", "1000s")
	viper.SetDefault("HTTP_SERVER_READ_TIMEOUT", "30s")
	viper.SetDefault("HTTP_SERVER_WRITE_TIMEOUT", "30s")
	viper.SetDefault("HTTP_SERVER_IDLE_TIMEOUT", "120s")
	viper.SetDefault("HTTP_SERVER_READ_HEADER_TIMEOUT", "10s")
	viper.SetDefault("RATE_LIMIT_RPS", 20.0)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("USE_RATE_LIMIT", false)
}
