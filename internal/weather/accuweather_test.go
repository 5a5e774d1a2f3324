package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/morning-briefing/internal/upstream"
)

func testAccuWeather(srv *httptest.Server) *AccuWeather {
	return &AccuWeather{
		apiKey:   "test-key",
		address:  "16 acer road, dalston - E83GX",
		location: "London",
		baseURL:  srv.URL,
		httpCfg: upstream.ClientConfig{
			Client: srv.Client(),
			Backoff: upstream.BackoffConfig{
				MaxRetries:      0,
				InitialInterval: time.Millisecond,
			},
		},
		circuit: upstream.NewBreaker("accuweather-test"),
	}
}

func accuWeatherHandler(searchCalls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/locations/v1/cities/search":
			searchCalls.Add(1)
			fmt.Fprint(w, `[{"Key":"328328","LocalizedName":"London"}]`)
		case "/currentconditions/v1/328328":
			fmt.Fprint(w, `[{"WeatherText":"Partly cloudy","Temperature":{"Metric":{"Value":14.5}}}]`)
		case "/forecasts/v1/daily/1day/328328":
			fmt.Fprint(w, `{"DailyForecasts":[{"Temperature":{"Minimum":{"Value":9.1},"Maximum":{"Value":17.3}},"Day":{"IconPhrase":"Mostly sunny"}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

// TestFetchCombinesCurrentAndForecast verifies the snapshot merges
// current conditions with the one-day forecast.
func TestFetchCombinesCurrentAndForecast(t *testing.T) {
	var searchCalls atomic.Int32
	srv := httptest.NewServer(accuWeatherHandler(&searchCalls))
	defer srv.Close()

	client := testAccuWeather(srv)

	snap, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Current.Condition != "Partly cloudy" || snap.Current.Temperature != 14.5 {
		t.Fatalf("unexpected current conditions: %+v", snap.Current)
	}
	if snap.Forecast.Condition != "Mostly sunny" ||
		snap.Forecast.MinTemperature != 9.1 ||
		snap.Forecast.MaxTemperature != 17.3 {
		t.Fatalf("unexpected forecast: %+v", snap.Forecast)
	}
	if snap.Location != "London" {
		t.Fatalf("unexpected location: %q", snap.Location)
	}
	if snap.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}
}

// TestFetchMemoizesLocationKey: the location search runs once across
// fetches; it burns quota like every other call.
func TestFetchMemoizesLocationKey(t *testing.T) {
	var searchCalls atomic.Int32
	srv := httptest.NewServer(accuWeatherHandler(&searchCalls))
	defer srv.Close()

	client := testAccuWeather(srv)

	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := searchCalls.Load(); got != 1 {
		t.Fatalf("expected 1 location search, got %d", got)
	}
}

// TestFetchOutageIsTransient: a 503 from AccuWeather surfaces as a
// transient error feeding the cache fallback.
func TestFetchOutageIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := testAccuWeather(srv)

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !upstream.Transient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

// TestFetchMissingAPIKey fails permanently before any upstream call.
func TestFetchMissingAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should not be called")
	}))
	defer srv.Close()

	client := testAccuWeather(srv)
	client.apiKey = ""

	_, err := client.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if upstream.Transient(err) {
		t.Fatalf("missing api key should not be transient: %v", err)
	}
}

// TestSourceServesStaleSnapshotWhenUpstreamFails exercises the cached
// source end to end: one good fetch, then a rate-limited upstream.
func TestSourceServesStaleSnapshotWhenUpstreamFails(t *testing.T) {
	var searchCalls atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		accuWeatherHandler(&searchCalls)(w, r)
	}))
	defer srv.Close()

	client := testAccuWeather(srv)
	source := NewSource(client, time.Nanosecond) // every call refetches

	first, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failing.Store(true)
	time.Sleep(time.Millisecond)

	stale, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected stale snapshot, got error: %v", err)
	}
	if stale.Current != first.Current {
		t.Fatalf("expected last-good snapshot, got %+v", stale.Current)
	}
}
