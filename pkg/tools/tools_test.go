package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auccello/amanda-go/internal/config"
)

func TestManager_RegisterAndGet(t *testing.T) {
	m := NewToolManager()
	m.RegisterTool(HelpTool{})
	m.RegisterTool(AboutTool{})

	tool, err := m.GetTool("help")
	require.NoError(t, err)
	require.Equal(t, "help", tool.Name())

	_, err = m.GetTool("missing")
	require.Error(t, err)

	names := make([]string, 0, 2)
	for _, tool := range m.List() {
		names = append(names, tool.Name())
	}
	require.Equal(t, []string{"help", "about"}, names)
}

func TestHelpAndAbout(t *testing.T) {
	out, err := HelpTool{}.Run(context.Background(), "{}")
	require.NoError(t, err)
	require.Contains(t, out, "Amanda AI")

	out, err = AboutTool{}.Run(context.Background(), "{}")
	require.NoError(t, err)
	require.Contains(t, out, "Amanda Uccello")
}

func TestGeocode_DummyWithoutAPIKey(t *testing.T) {
	tool := NewGeocodeTool(config.ToolsConfig{})
	out, err := tool.Run(context.Background(), `{"location_description":"London"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"lat":51.1,"lng":-0.1}`, out)
}

func TestGeocode_CallsAPI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "London", r.URL.Query().Get("q"))
		require.Equal(t, "key", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`[{"lat":"51.5","lon":"-0.12"}]`))
	}))
	defer ts.Close()

	tool := NewGeocodeTool(config.ToolsConfig{GeoAPIKey: "key"})
	tool.baseURL = ts.URL

	out, err := tool.Run(context.Background(), `{"location_description":"London"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"lat":"51.5","lng":"-0.12"}`, out)
}

func TestGeocode_NoResultsAsksForRetry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	tool := NewGeocodeTool(config.ToolsConfig{GeoAPIKey: "key"})
	tool.baseURL = ts.URL

	_, err := tool.Run(context.Background(), `{"location_description":"nowhere"}`)
	var retry *RetryError
	require.ErrorAs(t, err, &retry)
	require.Equal(t, "Could not find the location", retry.Reason)
}

func TestWeather_DummyWithoutAPIKey(t *testing.T) {
	tool := NewWeatherTool(config.ToolsConfig{})
	out, err := tool.Run(context.Background(), `{"lat":51.1,"lng":-0.1}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"temperature":"21 °C","description":"Sunny"}`, out)
}

func TestWeather_CallsAPI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"values": map[string]any{"temperatureApparent": 18.6, "weatherCode": 4001},
			},
		})
	}))
	defer ts.Close()

	tool := NewWeatherTool(config.ToolsConfig{WeatherAPIKey: "key"})
	tool.baseURL = ts.URL

	out, err := tool.Run(context.Background(), `{"lat":43.6,"lng":-79.6}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"temperature":"19°C","description":"Rain"}`, out)
}

func TestWeather_UnknownCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"values": map[string]any{"temperatureApparent": 0.0, "weatherCode": 9999},
			},
		})
	}))
	defer ts.Close()

	tool := NewWeatherTool(config.ToolsConfig{WeatherAPIKey: "key"})
	tool.baseURL = ts.URL

	out, err := tool.Run(context.Background(), `{"lat":0,"lng":0}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"temperature":"0°C","description":"Unknown"}`, out)
}
