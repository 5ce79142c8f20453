package loader

import (
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewFromConfig builds a loader backed by nominatim and the openstreetmap api, configured through viper.
func NewFromConfig(logger *zap.Logger) *Loader {
	client := &http.Client{Timeout: viper.GetDuration("http_client.timeout")}
	geocoder := NewNominatimGeocoder(viper.GetString("nominatim.url"), viper.GetString("http_client.user_agent"), client)
	source := NewOSMAPISource(viper.GetString("osm_api.url"), client)
	return NewLoader(geocoder, source, logger)
}
