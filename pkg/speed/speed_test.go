package speed

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaxSpeed(t *testing.T) {
	testCases := []struct {
		name       string
		candidates []string
		want       float64
		wantOk     bool
	}{
		{name: "plain number", candidates: []string{"50"}, want: 50, wantOk: true},
		{name: "with unit", candidates: []string{"30 mph"}, want: 30, wantOk: true},
		{name: "decimal", candidates: []string{"12.5"}, want: 12.5, wantOk: true},
		{name: "zone prefix", candidates: []string{"RU:urban 60"}, want: 60, wantOk: true},
		{name: "first numeric candidate wins", candidates: []string{"signals", "40", "60"}, want: 40, wantOk: true},
		{name: "no number", candidates: []string{"none", "walk"}, wantOk: false},
		{name: "empty", candidates: nil, wantOk: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMaxSpeed(tt.candidates)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTravelTime(t *testing.T) {
	assert.InDelta(t, 60.0, TravelTime(500, 30), 1e-9)
	assert.InDelta(t, 500/minSpeedMps, TravelTime(500, 0), 1e-6)
}

func TestEnsureEdgeSpeeds(t *testing.T) {
	g := datastructure.NewGraph()
	g.AddVertex(1, 0, 0)
	g.AddVertex(2, 0, 0.001)

	known := datastructure.NewEdge(1, []string{"60"}, nil)
	known.SetLength(500)
	known.SetSpeedKph(30)
	knownId, _ := g.AddEdge(1, 2, known)

	tagged := datastructure.NewEdge(2, []string{"40"}, nil)
	tagged.SetLength(400)
	taggedId, _ := g.AddEdge(1, 2, tagged)

	bare := datastructure.NewEdge(3, nil, nil)
	bareId, _ := g.AddEdge(2, 1, bare)

	curved := datastructure.NewEdge(4, nil, orb.LineString{{0, 0}, {0.001, 0}})
	curvedId, _ := g.AddEdge(1, 2, curved)

	EnsureEdgeSpeeds(g, DefaultFallbackKph)

	testCases := []struct {
		name       string
		eId        datastructure.Index
		wantLength float64
		wantSpeed  float64
	}{
		{name: "existing values kept", eId: knownId, wantLength: 500, wantSpeed: 30},
		{name: "speed from maxspeed", eId: taggedId, wantLength: 400, wantSpeed: 40},
		{name: "defaults", eId: bareId, wantLength: DefaultEdgeLength, wantSpeed: DefaultFallbackKph},
		{name: "length from geometry", eId: curvedId, wantLength: 111.139, wantSpeed: DefaultFallbackKph},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			e := g.GetEdge(tt.eId)
			length, ok := e.GetLength()
			require.True(t, ok)
			assert.InDelta(t, tt.wantLength, length, 1e-6)
			speed, ok := e.GetSpeedKph()
			require.True(t, ok)
			assert.Equal(t, tt.wantSpeed, speed)
			travelTime, ok := e.GetTravelTime()
			require.True(t, ok)
			assert.InDelta(t, TravelTime(tt.wantLength, tt.wantSpeed), travelTime, 1e-6)
		})
	}
}

func TestEnsureEdgeSpeedsIdempotent(t *testing.T) {
	g := datastructure.NewGraph()
	g.AddVertex(1, 0, 0)
	g.AddVertex(2, 0, 0.002)
	g.AddEdge(1, 2, datastructure.NewEdge(1, []string{"25 mph"}, orb.LineString{{0, 0}, {0.001, 0.001}, {0.002, 0}}))
	g.AddEdge(2, 1, datastructure.NewEdge(2, nil, nil))

	EnsureEdgeSpeeds(g, 20)
	first := g.Clone()
	EnsureEdgeSpeeds(g, 20)

	g.ForEachEdge(func(eId datastructure.Index, e *datastructure.Edge) {
		assert.Equal(t, *first.GetEdge(eId), *e)
	})
}
