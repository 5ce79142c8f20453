package osmparser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

// ReadOSMFile reads an openstreetmap extract. Files ending in .pbf are read with the
// protobuf scanner, everything else as osm xml.
func ReadOSMFile(ctx context.Context, mapFile string, logger *zap.Logger) (*osm.OSM, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(mapFile, ".pbf") {
		// must not be parallel
		scanner = osmpbf.New(ctx, f, 1)
	} else {
		scanner = osmxml.New(ctx, f)
	}
	defer scanner.Close()

	data, err := Collect(scanner, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", mapFile, err)
	}
	return data, nil
}

// Collect drains scanner into an osm.OSM, keeping nodes and ways.
func Collect(scanner osm.Scanner, logger *zap.Logger) (*osm.OSM, error) {
	data := &osm.OSM{}
	countNodes, countWays := 0, 0
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if (countNodes+1)%500000 == 0 {
				logger.Sugar().Infof("scanning openstreetmap nodes: %d...", countNodes+1)
			}
			countNodes++
			data.Nodes = append(data.Nodes, o)
		case *osm.Way:
			if (countWays+1)%50000 == 0 {
				logger.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
			}
			countWays++
			data.Ways = append(data.Ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// Parse reads mapFile and builds the simplified drivable graph.
func Parse(ctx context.Context, mapFile string, logger *zap.Logger) (*datastructure.Graph, error) {
	data, err := ReadOSMFile(ctx, mapFile, logger)
	if err != nil {
		return nil, err
	}
	return NewGraphBuilder(logger).Build(data), nil
}
