package loader

import (
	"context"
	"errors"
	"fmt"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/osmparser"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

var ErrEmptyGraph = errors.New("no drivable road in area")

const (
	DefaultPlaceName = "Zona 16 de Julio, El Alto, La Paz, Bolivia"
	DefaultCenterLat = -16.500
	DefaultCenterLon = -68.189
	DefaultDeltaDeg  = 0.015
)

// Area describes where the road graph comes from. A local OSMFile wins over the place name,
// and Center and DeltaDeg give the bounding box used when the place cannot be resolved.
type Area struct {
	PlaceName string
	Center    geo.Coordinate
	DeltaDeg  float64
	OSMFile   string
}

func DefaultArea() Area {
	return Area{
		PlaceName: DefaultPlaceName,
		Center:    geo.NewCoordinate(DefaultCenterLat, DefaultCenterLon),
		DeltaDeg:  DefaultDeltaDeg,
	}
}

func (a Area) FallbackBox() BoundingBox {
	south, west, north, east := geo.BoundingBoxAround(a.Center, a.DeltaDeg)
	return BoundingBox{South: south, West: west, North: north, East: east}
}

func (a Area) fallbackRef() string {
	return fmt.Sprintf("bbox around (%.3f, %.3f)", a.Center.Lat, a.Center.Lon)
}

type Loader struct {
	geocoder Geocoder
	source   MapSource
	logger   *zap.Logger
}

func NewLoader(geocoder Geocoder, source MapSource, logger *zap.Logger) *Loader {
	return &Loader{
		geocoder: geocoder,
		source:   source,
		logger:   logger,
	}
}

// Load builds the drivable graph of area and returns it with a description of where it came from.
// A place that cannot be resolved falls back to the bounding box around area.Center.
func (l *Loader) Load(ctx context.Context, area Area) (*da.Graph, string, error) {
	if area.OSMFile != "" {
		g, err := osmparser.Parse(ctx, area.OSMFile, l.logger)
		if err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", area.OSMFile, err)
		}
		if g.NumberOfEdges() == 0 {
			return nil, "", fmt.Errorf("%w: %s", ErrEmptyGraph, area.OSMFile)
		}
		return g, area.OSMFile, nil
	}

	if area.PlaceName != "" && l.geocoder != nil {
		g, err := l.loadPlace(ctx, area.PlaceName)
		if err == nil {
			return g, area.PlaceName, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		l.logger.Warn("place lookup failed, using bounding box fallback",
			zap.String("place", area.PlaceName), zap.Error(err))
	}

	bb := area.FallbackBox()
	g, err := l.loadBox(ctx, bb)
	if err != nil {
		return nil, "", fmt.Errorf("load fallback bounding box: %w", err)
	}
	return g, area.fallbackRef(), nil
}

func (l *Loader) loadPlace(ctx context.Context, place string) (*da.Graph, error) {
	bb, err := l.geocoder.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}
	return l.loadBox(ctx, bb)
}

func (l *Loader) loadBox(ctx context.Context, bb BoundingBox) (*da.Graph, error) {
	data, err := l.source.Map(ctx, bb)
	if err != nil {
		return nil, err
	}
	g := l.build(data)
	if g.NumberOfEdges() == 0 {
		return nil, fmt.Errorf("%w: %+v", ErrEmptyGraph, bb)
	}
	l.logger.Info("road graph loaded",
		zap.Int("vertices", g.NumberOfVertices()), zap.Int("edges", g.NumberOfEdges()))
	return g, nil
}

func (l *Loader) build(data *osm.OSM) *da.Graph {
	return osmparser.NewGraphBuilder(l.logger).Build(data)
}
