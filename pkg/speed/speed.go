// Package speed fills in length, speed and travel time on every edge of a road graph.
package speed

import (
	"math"
	"regexp"
	"strconv"

	"github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/paulmach/orb/planar"
)

const (
	DefaultFallbackKph = 30.0
	// DefaultEdgeLength is used for edges that have neither a length nor a geometry.
	DefaultEdgeLength = 30.0
	minSpeedMps       = 1e-3
)

var numberPattern = regexp.MustCompile(`\d+\.?\d*`)

// EnsureEdgeSpeeds makes sure every edge has a length (m), a speed (km/h) and a travel time (s).
// Existing lengths and speeds are kept, so running it twice gives the same values.
func EnsureEdgeSpeeds(g *datastructure.Graph, fallbackKph float64) {
	g.ForEachEdge(func(_ datastructure.Index, e *datastructure.Edge) {
		lengthM, ok := e.GetLength()
		if !ok {
			if e.HasGeometry() {
				lengthM = planar.Length(e.GetGeometry()) * geo.DegreeToMeter
			} else {
				lengthM = DefaultEdgeLength
			}
			e.SetLength(lengthM)
		}

		speedKph, ok := e.GetSpeedKph()
		if !ok {
			speedKph, ok = ParseMaxSpeed(e.GetMaxSpeed())
			if !ok {
				speedKph = fallbackKph
			}
			e.SetSpeedKph(speedKph)
		}

		e.SetTravelTime(TravelTime(lengthM, speedKph))
	})
}

// TravelTime in seconds of lengthM meters at speedKph.
func TravelTime(lengthM, speedKph float64) float64 {
	speedMps := speedKph * 1000 / 3600
	return lengthM / math.Max(speedMps, minSpeedMps)
}

// ParseMaxSpeed returns the first numeric token found in the maxspeed candidates
// ("50", "50 mph", "RU:urban 60", ...). Units are not converted.
func ParseMaxSpeed(candidates []string) (float64, bool) {
	for _, c := range candidates {
		token := numberPattern.FindString(c)
		if token == "" {
			continue
		}
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
