package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ErrNoAddress indicates the coordinates resolved to nothing usable
var ErrNoAddress = errors.New("no address found for coordinates")

// Geocoder turns shared-location coordinates into a delivery address
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

const defaultNominatimBase = "https://nominatim.openstreetmap.org"

// NominatimGeocoder resolves coordinates through the OSM Nominatim API
type NominatimGeocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewNominatimGeocoderFromEnv builds a geocoder; NOMINATIM_BASE overrides
// the public endpoint for self-hosted instances
func NewNominatimGeocoderFromEnv() *NominatimGeocoder {
	base := os.Getenv("NOMINATIM_BASE")
	if base == "" {
		base = defaultNominatimBase
	}
	return &NominatimGeocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    base,
		userAgent:  "cartwala-bot/1.0",
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse resolves coordinates to a display address
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		g.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", lat)),
		url.QueryEscape(fmt.Sprintf("%f", lon)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var parsed reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	if parsed.DisplayName == "" {
		return "", ErrNoAddress
	}
	return parsed.DisplayName, nil
}
