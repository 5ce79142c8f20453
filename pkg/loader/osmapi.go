package loader

import (
	"context"
	"net/http"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmapi"
)

// MapSource downloads the openstreetmap data inside a bounding box.
type MapSource interface {
	Map(ctx context.Context, bbox BoundingBox) (*osm.OSM, error)
}

type OSMAPISource struct {
	ds *osmapi.Datasource
}

// NewOSMAPISource talks to the openstreetmap api at baseURL, or the public api when it is empty.
func NewOSMAPISource(baseURL string, client *http.Client) *OSMAPISource {
	ds := osmapi.NewDatasource(client)
	if baseURL != "" {
		ds.BaseURL = baseURL
	}
	return &OSMAPISource{ds: ds}
}

func (s *OSMAPISource) Map(ctx context.Context, bbox BoundingBox) (*osm.OSM, error) {
	return s.ds.Map(ctx, &osm.Bounds{
		MinLat: bbox.South,
		MaxLat: bbox.North,
		MinLon: bbox.West,
		MaxLon: bbox.East,
	})
}
