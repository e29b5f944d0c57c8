package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/auccello/amanda-go/internal/config"
	"github.com/auccello/amanda-go/internal/logger"
)

const defaultGeocodeURL = "https://geocode.maps.co/search"

// GeocodeTool resolves a location description to latitude/longitude via the
// geocode.maps.co API. Without an API key it returns fixed coordinates.
type GeocodeTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeocodeTool creates a GeocodeTool from the tools configuration.
func NewGeocodeTool(cfg config.ToolsConfig) *GeocodeTool {
	return &GeocodeTool{
		apiKey:  cfg.GeoAPIKey,
		baseURL: defaultGeocodeURL,
		client:  &http.Client{},
	}
}

func (t *GeocodeTool) Name() string { return "get_lat_lng" }

func (t *GeocodeTool) Description() string {
	return "Get the latitude and longitude of a location."
}

func (t *GeocodeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"location_description": {"type": "string", "description": "Location description."}
		},
		"required": ["location_description"]
	}`)
}

func (t *GeocodeTool) Run(ctx context.Context, args string) (string, error) {
	var in struct {
		LocationDescription string `json:"location_description"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("geocode: bad arguments: %w", err)
	}

	if t.apiKey == "" {
		return `{"lat":51.1,"lng":-0.1}`, nil
	}

	q := url.Values{}
	q.Set("q", in.LocationDescription)
	q.Set("api_key", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	logger.L.Debug("calling geocode API", "location", in.LocationDescription)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode: unexpected status code: %d", resp.StatusCode)
	}

	var data []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(data) == 0 {
		return "", &RetryError{Reason: "Could not find the location"}
	}

	out, err := json.Marshal(map[string]string{"lat": data[0].Lat, "lng": data[0].Lon})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
