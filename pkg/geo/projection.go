package geo

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// WGS84 ellipsoid & UTM constants
const (
	wgs84A      = 6378137.0
	wgs84F      = 1 / 298.257223563
	utmK0       = 0.9996
	utmFalseE   = 500000.0
	utmFalseN   = 10000000.0
	utmZoneSize = 6.0
)

// UTMZone is a universal transverse mercator zone, the locally accurate planar CRS used for
// metric buffers and distances.
type UTMZone struct {
	Number int
	South  bool
}

// UTMZoneFor picks the zone containing (lat, lon).
func UTMZoneFor(lat, lon float64) UTMZone {
	number := int(math.Floor((lon+180)/utmZoneSize)) + 1
	if number > 60 {
		number = 60
	}
	if number < 1 {
		number = 1
	}
	return UTMZone{Number: number, South: lat < 0}
}

func (z UTMZone) EPSG() int {
	if z.South {
		return 32700 + z.Number
	}
	return 32600 + z.Number
}

func (z UTMZone) String() string {
	return fmt.Sprintf("EPSG:%d", z.EPSG())
}

func (z UTMZone) centralMeridian() float64 {
	return float64(z.Number-1)*utmZoneSize - 180 + utmZoneSize/2
}

// Forward projects a lon/lat point to utm easting/northing in meter.
func (z UTMZone) Forward(p orb.Point) orb.Point {
	lat := util.DegreeToRadians(p.Lat())
	dLon := util.DegreeToRadians(p.Lon() - z.centralMeridian())

	e2 := wgs84F * (2 - wgs84F)
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	tanLat := math.Tan(lat)

	n := wgs84A / math.Sqrt(1-e2*sinLat*sinLat)
	t := tanLat * tanLat
	c := ep2 * cosLat * cosLat
	a := cosLat * dLon

	m := wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*lat -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*lat) +
		(15*e4/256+45*e6/1024)*math.Sin(4*lat) -
		(35*e6/3072)*math.Sin(6*lat))

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting := utmK0*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + utmFalseE
	northing := utmK0 * (m + n*tanLat*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if z.South {
		northing += utmFalseN
	}
	return orb.Point{easting, northing}
}

// Projection returns Forward as an orb.Projection.
func (z UTMZone) Projection() orb.Projection {
	return z.Forward
}

// ProjectLineString returns a projected copy of ls.
func ProjectLineString(ls orb.LineString, proj orb.Projection) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = proj(p)
	}
	return out
}

// InterpolateNormalized returns the point at fraction (0..1) of the planar length of ls.
func InterpolateNormalized(ls orb.LineString, fraction float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	total := planar.Length(ls)
	if len(ls) == 1 || total == 0 {
		return ls[0]
	}
	fraction = math.Max(0, math.Min(1, fraction))
	target := total * fraction

	walked := 0.0
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if walked+seg >= target && seg > 0 {
			r := (target - walked) / seg
			return orb.Point{
				ls[i-1][0] + r*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + r*(ls[i][1]-ls[i-1][1]),
			}
		}
		walked += seg
	}
	return ls[len(ls)-1]
}
