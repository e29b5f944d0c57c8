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

const defaultWeatherURL = "https://api.tomorrow.io/v4/weather/realtime"

// https://docs.tomorrow.io/reference/data-layers-weather-codes
var weatherCodes = map[int]string{
	1000: "Clear, Sunny",
	1100: "Mostly Clear",
	1101: "Partly Cloudy",
	1102: "Mostly Cloudy",
	1001: "Cloudy",
	2000: "Fog",
	2100: "Light Fog",
	4000: "Drizzle",
	4001: "Rain",
	4200: "Light Rain",
	4201: "Heavy Rain",
	5000: "Snow",
	5001: "Flurries",
	5100: "Light Snow",
	5101: "Heavy Snow",
	6000: "Freezing Drizzle",
	6001: "Freezing Rain",
	6200: "Light Freezing Rain",
	6201: "Heavy Freezing Rain",
	7000: "Ice Pellets",
	7101: "Heavy Ice Pellets",
	7102: "Light Ice Pellets",
	8000: "Thunderstorm",
}

// WeatherTool fetches current conditions from the tomorrow.io realtime API.
// Without an API key it returns a canned sunny response.
type WeatherTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherTool creates a WeatherTool from the tools configuration.
func NewWeatherTool(cfg config.ToolsConfig) *WeatherTool {
	return &WeatherTool{
		apiKey:  cfg.WeatherAPIKey,
		baseURL: defaultWeatherURL,
		client:  &http.Client{},
	}
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Get the weather at a location given its latitude and longitude."
}

func (t *WeatherTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {"type": "number", "description": "Latitude of the location."},
			"lng": {"type": "number", "description": "Longitude of the location."}
		},
		"required": ["lat", "lng"]
	}`)
}

func (t *WeatherTool) Run(ctx context.Context, args string) (string, error) {
	var in struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", fmt.Errorf("weather: bad arguments: %w", err)
	}

	if t.apiKey == "" {
		return `{"temperature":"21 °C","description":"Sunny"}`, nil
	}

	q := url.Values{}
	q.Set("apikey", t.apiKey)
	q.Set("location", fmt.Sprintf("%v,%v", in.Lat, in.Lng))
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	logger.L.Debug("calling weather API", "lat", in.Lat, "lng", in.Lng)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather: unexpected status code: %d", resp.StatusCode)
	}

	var data struct {
		Data struct {
			Values struct {
				TemperatureApparent float64 `json:"temperatureApparent"`
				WeatherCode         int     `json:"weatherCode"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("weather: decode response: %w", err)
	}

	desc, ok := weatherCodes[data.Data.Values.WeatherCode]
	if !ok {
		desc = "Unknown"
	}
	out, err := json.Marshal(map[string]string{
		"temperature": fmt.Sprintf("%.0f°C", data.Data.Values.TemperatureApparent),
		"description": desc,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
