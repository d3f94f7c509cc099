package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Fallback coordinates when geocoding yields nothing (central Amsterdam,
// matching the original service's default city).
const (
	DefaultLatitude  = 52.373992
	DefaultLongitude = 4.8858433
)

const defaultGeocodeURL = "https://nominatim.openstreetmap.org"

// Geocoder resolves a city name to coordinates via a Nominatim-style
// search endpoint.
type Geocoder struct {
	hc      *http.Client
	baseURL string
}

func NewGeocoder(baseURL string) *Geocoder {
	if baseURL == "" {
		baseURL = defaultGeocodeURL
	}
	return &Geocoder{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type geocodeHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *Geocoder) Locate(ctx context.Context, city string) (lat, lon float64, err error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	// Nominatim's usage policy requires an identifying user agent.
	req.Header.Set("User-Agent", "booker-agent")

	res, err := g.hc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocode failed (status=%d)", res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, 0, err
	}

	var hits []geocodeHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return 0, 0, err
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("no coordinates found for %q", city)
	}
	lat, err = strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
