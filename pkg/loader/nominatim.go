package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

var ErrPlaceNotFound = errors.New("place not found")

type BoundingBox struct {
	South, West, North, East float64
}

func (b BoundingBox) Valid() bool {
	return b.South < b.North && b.West < b.East
}

// Geocoder resolves a place name to its bounding box.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (BoundingBox, error)
}

type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimGeocoder(baseURL, userAgent string, client *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    client,
	}
}

type nominatimPlace struct {
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"` // south, north, west, east
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, place string) (BoundingBox, error) {
	endpoint := g.baseURL + "/search"
	resp, err := doWithRetry(ctx, g.client, func() (*http.Request, error) {
		q := url.Values{}
		q.Set("q", place)
		q.Set("format", "json")
		q.Set("limit", "1")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", g.userAgent)
		return req, nil
	})
	if err != nil {
		return BoundingBox{}, fmt.Errorf("geocode %q: %w", place, err)
	}
	defer resp.Body.Close()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return BoundingBox{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 || len(places[0].BoundingBox) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, place)
	}

	var v [4]float64
	for i, s := range places[0].BoundingBox {
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bounding box for %q: %w", place, err)
		}
	}
	bb := BoundingBox{South: v[0], North: v[1], West: v[2], East: v[3]}
	if !bb.Valid() {
		return BoundingBox{}, fmt.Errorf("%w: degenerate bounding box for %q", ErrPlaceNotFound, place)
	}
	return bb, nil
}
