// Package weather fetches and caches the briefing's weather data from
// AccuWeather.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/morning-briefing/internal/upstream"
)

const defaultBaseURL = "http://dataservice.accuweather.com"

// AccuWeather fetches current conditions and the one-day forecast for
// a fixed address. The AccuWeather location key is resolved once and
// memoized; every lookup counts against the same rate-limited quota.
type AccuWeather struct {
	apiKey   string
	address  string
	location string
	baseURL  string
	useGeo   bool
	httpCfg  upstream.ClientConfig
	circuit  *gobreaker.CircuitBreaker

	mu          sync.Mutex
	locationKey string
}

// NewAccuWeather creates a client for the given address. When a
// geocoder API key is configured, the address is resolved to
// coordinates and looked up through AccuWeather's geoposition search;
// otherwise the free-text city search is used.
func NewAccuWeather(client *http.Client, apiKey, geocoderKey, address, location string) *AccuWeather {
	if geocoderKey != "" {
		geocoder.ApiKey = geocoderKey
	}
	return &AccuWeather{
		apiKey:   apiKey,
		address:  address,
		location: location,
		baseURL:  defaultBaseURL,
		useGeo:   geocoderKey != "",
		httpCfg:  upstream.DefaultClientConfig(client),
		circuit:  upstream.NewBreaker("accuweather"),
	}
}

// Fetch returns a fresh snapshot combining current conditions with the
// one-day forecast.
func (a *AccuWeather) Fetch(ctx context.Context) (Snapshot, error) {
	if a.apiKey == "" {
		return Snapshot{}, fmt.Errorf("accuweather api key is not configured")
	}

	key, err := a.locationKeyFor(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	current, err := a.fetchCurrent(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}

	forecast, err := a.fetchForecast(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Location:  a.location,
		Timestamp: time.Now().UTC(),
		Current:   current,
		Forecast:  forecast,
	}, nil
}

// locationKeyFor resolves and memoizes the AccuWeather location key.
func (a *AccuWeather) locationKeyFor(ctx context.Context) (string, error) {
	a.mu.Lock()
	key := a.locationKey
	a.mu.Unlock()
	if key != "" {
		return key, nil
	}

	searchPath := "/locations/v1/cities/search"
	query := a.address

	if a.useGeo {
		loc, err := geocoder.Geocoding(geocoder.Address{Street: a.address})
		if err != nil {
			return "", fmt.Errorf("geocode address: %w", err)
		}
		searchPath = "/locations/v1/cities/geoposition/search"
		query = fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", a.apiKey)
		values.Set("q", query)
		u := fmt.Sprintf("%s%s?%s", a.baseURL, searchPath, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, a.httpCfg, a.circuit, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if a.useGeo {
		// Geoposition search returns a single location object.
		var payload struct {
			Key string `json:"Key"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", err
		}
		key = payload.Key
	} else {
		var payload []struct {
			Key string `json:"Key"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", err
		}
		if len(payload) > 0 {
			key = payload[0].Key
		}
	}

	if key == "" {
		return "", fmt.Errorf("accuweather: no location found for %q", a.address)
	}

	a.mu.Lock()
	a.locationKey = key
	a.mu.Unlock()
	return key, nil
}

func (a *AccuWeather) fetchCurrent(ctx context.Context, key string) (CurrentConditions, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", a.apiKey)
		values.Set("details", "true")
		u := fmt.Sprintf("%s/currentconditions/v1/%s?%s", a.baseURL, key, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, a.httpCfg, a.circuit, buildRequest)
	if err != nil {
		return CurrentConditions{}, err
	}
	defer resp.Body.Close()

	var payload []struct {
		WeatherText string `json:"WeatherText"`
		Temperature struct {
			Metric struct {
				Value float64 `json:"Value"`
			} `json:"Metric"`
		} `json:"Temperature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CurrentConditions{}, err
	}
	if len(payload) == 0 {
		return CurrentConditions{}, fmt.Errorf("accuweather: empty current conditions response")
	}

	return CurrentConditions{
		Condition:   payload[0].WeatherText,
		Temperature: payload[0].Temperature.Metric.Value,
	}, nil
}

func (a *AccuWeather) fetchForecast(ctx context.Context, key string) (DayForecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("apikey", a.apiKey)
		values.Set("metric", "true")
		u := fmt.Sprintf("%s/forecasts/v1/daily/1day/%s?%s", a.baseURL, key, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := upstream.Do(ctx, a.httpCfg, a.circuit, buildRequest)
	if err != nil {
		return DayForecast{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		DailyForecasts []struct {
			Temperature struct {
				Minimum struct {
					Value float64 `json:"Value"`
				} `json:"Minimum"`
				Maximum struct {
					Value float64 `json:"Value"`
				} `json:"Maximum"`
			} `json:"Temperature"`
			Day struct {
				IconPhrase string `json:"IconPhrase"`
			} `json:"Day"`
		} `json:"DailyForecasts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return DayForecast{}, err
	}
	if len(payload.DailyForecasts) == 0 {
		return DayForecast{}, fmt.Errorf("accuweather: empty forecast response")
	}

	daily := payload.DailyForecasts[0]
	return DayForecast{
		Condition:      daily.Day.IconPhrase,
		MinTemperature: daily.Temperature.Minimum.Value,
		MaxTemperature: daily.Temperature.Maximum.Value,
	}, nil
}
