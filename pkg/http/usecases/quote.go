package usecases

import (
	"errors"
	"sort"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-eta/pkg/estimator"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"go.uber.org/zap"
)

var (
	ErrNetworkUnavailable = errors.New("road network is not loaded")
	ErrNoCandidates       = errors.New("no road node near the given point")
	ErrPathNotFound       = errors.New("no path found")
)

type Quote struct {
	Origin      da.NodeID
	Destination da.NodeID
	DistanceM   float64
	BaseTimeSec float64
	IsThursday  int
	Prediction  estimator.Prediction
	Polyline    string
}

type QuoteService struct {
	log          *zap.Logger
	networks     *NetworkStore
	predictions  *PredictionService
	searchRadius float64
}

func NewQuoteService(log *zap.Logger, networks *NetworkStore, predictions *PredictionService,
	searchRadius float64) *QuoteService {
	return &QuoteService{
		log:          log,
		networks:     networks,
		predictions:  predictions,
		searchRadius: searchRadius,
	}
}

// Quote snaps both points to the road network, routes them on the regime graph and predicts the trip time.
func (qs *QuoteService) Quote(origLat, origLon, dstLat, dstLon float64, isThursday int) (Quote, error) {
	network, ok := qs.networks.Get()
	if !ok {
		return Quote{}, util.WrapErrorf(ErrNetworkUnavailable, util.ErrModelUnavailable, "road network is not loaded, run training first")
	}
	g, index := network.Regime(isThursday == 1)

	orig, err := qs.snap(g, index, geo.NewCoordinate(origLat, origLon))
	if err != nil {
		return Quote{}, util.WrapErrorf(err, util.ErrBadParamInput, "no road near origin %f,%f", origLat, origLon)
	}
	dst, err := qs.snap(g, index, geo.NewCoordinate(dstLat, dstLon))
	if err != nil {
		return Quote{}, util.WrapErrorf(err, util.ErrBadParamInput, "no road near destination %f,%f", dstLat, dstLon)
	}

	stats := routing.ShortestRouteStats(g, orig, dst, routing.WeightLength)
	if !stats.Found() {
		return Quote{}, util.WrapErrorf(ErrPathNotFound, util.ErrNotFound, "no path found from %f,%f to %f,%f",
			origLat, origLon, dstLat, dstLon)
	}

	pred, err := qs.predictions.Predict(estimator.FeatureRow{
		DistanceM:   stats.Distance,
		BaseTimeSec: stats.TravelTime,
		ClosureFlag: isThursday,
	})
	if err != nil {
		return Quote{}, err
	}

	coords := make([]geo.Coordinate, 0, len(stats.Path))
	for _, id := range stats.Path {
		idx, _ := g.GetVertexIndex(id)
		lat, lon := g.GetVertexCoordinates(idx)
		coords = append(coords, geo.NewCoordinate(lat, lon))
	}

	return Quote{
		Origin:      orig,
		Destination: dst,
		DistanceM:   stats.Distance,
		BaseTimeSec: stats.TravelTime,
		IsThursday:  isThursday,
		Prediction:  pred,
		Polyline:    geo.PolylineFromCoords(coords),
	}, nil
}

// snap returns the node closest to c by great circle distance among the r-tree candidates.
func (qs *QuoteService) snap(g *da.Graph, index *spatialindex.NodeIndex, c geo.Coordinate) (da.NodeID, error) {
	candidates := index.SearchWithinRadius(index.Project(c), qs.searchRadius)
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	dist := make([]float64, len(candidates))
	for i, idx := range candidates {
		lat, lon := g.GetVertexCoordinates(idx)
		dist[i] = geo.GreatCircleDistance(c, geo.NewCoordinate(lat, lon))
	}
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return dist[order[i]] < dist[order[j]]
	})
	return g.GetVertex(candidates[order[0]]).GetID(), nil
}
