package datastructure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/paulmach/orb"
)

var ErrMalformedGraphFile = errors.New("malformed graph file")

// WriteGraph writes g to a bzip2 compressed, tab separated text file.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	if err := g.Encode(bz); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

// Encode writes the uncompressed text form of g:
//
//	numVertices numEdges
//	osmId lat lon                                        (one line per vertex)
//	tail head osmWayId length speed travelTime maxspeed  (one line per edge, then the geometry)
func (g *Graph) Encode(out io.Writer) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "%d\t%d\n", len(g.vertices), len(g.edges))

	for _, v := range g.vertices {
		fmt.Fprintf(w, "%d\t%s\t%s\n", v.id, formatFloat(v.lat), formatFloat(v.lon))
	}

	for i := range g.edges {
		e := &g.edges[i]
		coords := make([]string, 0, 2*len(e.geometry))
		for _, p := range e.geometry {
			coords = append(coords, formatFloat(p.Lon()), formatFloat(p.Lat()))
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.tail, e.head, e.osmWayId,
			formatOptional(e.length, e.hasLength),
			formatOptional(e.speedKph, e.hasSpeed),
			formatOptional(e.travelTime, e.hasTravelTime),
			strings.Join(e.maxSpeed, ";"),
			len(e.geometry), strings.Join(coords, " "))
	}

	return w.Flush()
}

func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return Decode(bz)
}

// Decode reads the text form written by Encode.
func Decode(in io.Reader) (*Graph, error) {
	br := bufio.NewReader(in)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	tokens := strings.Split(line, "\t")
	if len(tokens) != 2 {
		return nil, fmt.Errorf("%w: header %q", ErrMalformedGraphFile, line)
	}
	numVertices, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	numEdges, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	if numVertices < 0 || numEdges < 0 {
		return nil, fmt.Errorf("%w: header %q", ErrMalformedGraphFile, line)
	}

	g := NewGraphWithSize(numVertices, numEdges)
	for i := 0; i < numVertices; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		if err := g.parseVertex(line); err != nil {
			return nil, err
		}
	}

	for i := 0; i < numEdges; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		if err := g.parseEdge(line); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Graph) parseVertex(line string) error {
	tokens := strings.Split(line, "\t")
	if len(tokens) != 3 {
		return fmt.Errorf("%w: vertex %q", ErrMalformedGraphFile, line)
	}
	id, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	lat, err := util.StringToFloat64(tokens[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	lon, err := util.StringToFloat64(tokens[2])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	g.AddVertex(NodeID(id), lat, lon)
	return nil
}

func (g *Graph) parseEdge(line string) error {
	tokens := strings.Split(line, "\t")
	if len(tokens) != 9 {
		return fmt.Errorf("%w: edge %q", ErrMalformedGraphFile, line)
	}
	tail, err := strconv.Atoi(tokens[0])
	if err != nil || tail < 0 || tail >= len(g.vertices) {
		return fmt.Errorf("%w: edge tail %q", ErrMalformedGraphFile, tokens[0])
	}
	head, err := strconv.Atoi(tokens[1])
	if err != nil || head < 0 || head >= len(g.vertices) {
		return fmt.Errorf("%w: edge head %q", ErrMalformedGraphFile, tokens[1])
	}
	wayId, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}

	var maxSpeed []string
	if tokens[6] != "" {
		maxSpeed = strings.Split(tokens[6], ";")
	}

	numPoints, err := strconv.Atoi(tokens[7])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	var geometry orb.LineString
	if numPoints > 0 {
		coords := strings.Fields(tokens[8])
		if len(coords) != 2*numPoints {
			return fmt.Errorf("%w: geometry %q", ErrMalformedGraphFile, tokens[8])
		}
		geometry = make(orb.LineString, numPoints)
		for i := 0; i < numPoints; i++ {
			lon, err := util.StringToFloat64(coords[2*i])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
			}
			lat, err := util.StringToFloat64(coords[2*i+1])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
			}
			geometry[i] = orb.Point{lon, lat}
		}
	}

	e := NewEdge(wayId, maxSpeed, geometry)
	if e.length, e.hasLength, err = parseOptional(tokens[3]); err != nil {
		return err
	}
	if e.speedKph, e.hasSpeed, err = parseOptional(tokens[4]); err != nil {
		return err
	}
	if e.travelTime, e.hasTravelTime, err = parseOptional(tokens[5]); err != nil {
		return err
	}

	g.AddEdge(g.vertices[tail].id, g.vertices[head].id, e)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return formatFloat(v)
}

func parseOptional(token string) (float64, bool, error) {
	if token == "-" {
		return 0, false, nil
	}
	v, err := util.StringToFloat64(token)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrMalformedGraphFile, err)
	}
	return v, true, nil
}
