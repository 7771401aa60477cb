package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// WeatherApology is broadcast when the lookup fails.
const WeatherApology = "Error retrieving weather info. Please try again later."

// OpenWeather answers current-conditions lookups.
type OpenWeather struct {
	apiKey string
	url    string
	client *http.Client
}

func NewOpenWeather(apiKey string) *OpenWeather {
	return &OpenWeather{
		apiKey: apiKey,
		url:    openWeatherURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type weatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// Weather returns a one-line readable summary for the place.
func (w *OpenWeather) Weather(ctx context.Context, place string) (string, error) {
	query := url.Values{}
	query.Set("q", place)
	query.Set("appid", w.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Weather) == 0 {
		return "", fmt.Errorf("weather: no data for %q", place)
	}
	return fmt.Sprintf("Weather in %s: %s (%s), %.1f°C.",
		title(place), parsed.Weather[0].Main, parsed.Weather[0].Description, parsed.Main.Temp), nil
}

func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
