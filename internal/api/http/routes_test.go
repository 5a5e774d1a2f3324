package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/briefing"
	"github.com/i474232898/morning-briefing/internal/calendar"
	"github.com/i474232898/morning-briefing/internal/weather"
)

type stubCalendar struct {
	events []calendar.Event
	err    error
}

func (s stubCalendar) TodayEvents(ctx context.Context, now time.Time) ([]calendar.Event, error) {
	return s.events, s.err
}

type stubWeather struct {
	snapshot weather.Snapshot
	err      error
}

func (s stubWeather) Fetch(ctx context.Context) (weather.Snapshot, error) {
	return s.snapshot, s.err
}

// testApp wires a Fiber app with stub sources. tokenHandler serves the
// fake OAuth token endpoint used by code exchange.
func testApp(t *testing.T, cal briefing.CalendarSource, wx briefing.WeatherSource, tokenHandler http.HandlerFunc) (*fiber.App, *auth.FlowRegistry, *auth.Store) {
	t.Helper()

	if tokenHandler == nil {
		tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint should not be called")
		}
	}
	srv := httptest.NewServer(tokenHandler)
	t.Cleanup(srv.Close)

	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{auth.ScopeCalendarReadonly},
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	flows := auth.NewFlowRegistry(conf, 10*time.Minute, srv.Client())
	creds := auth.NewStore(filepath.Join(t.TempDir(), "token.json"), conf, srv.Client())
	agg := briefing.New(cal, wx, flows, nil, "London")

	app := fiber.New()
	RegisterRoutes(app, agg, flows, creds)
	return app, flows, creds
}

// TestBriefingRouteAuthorizationRequired: a fresh process with no
// credentials returns the authorization payload with status 200.
func TestBriefingRouteAuthorizationRequired(t *testing.T) {
	app, _, _ := testApp(t,
		stubCalendar{err: auth.ErrAuthorizationRequired},
		stubWeather{snapshot: weather.Snapshot{}},
		nil,
	)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/briefing", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var payload struct {
		AuthorizationRequired bool   `json:"authorization_required"`
		AuthorizationURL      string `json:"authorization_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.AuthorizationRequired || payload.AuthorizationURL == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

// TestBriefingRoutePlainText: a successful briefing is served as plain
// text.
func TestBriefingRoutePlainText(t *testing.T) {
	snapshot := weather.Snapshot{
		Location: "London",
		Current:  weather.CurrentConditions{Condition: "Sunny", Temperature: 21.0},
		Forecast: weather.DayForecast{Condition: "Sunny", MinTemperature: 12.0, MaxTemperature: 23.0},
	}
	app, _, _ := testApp(t, stubCalendar{}, stubWeather{snapshot: snapshot}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/briefing", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Good morning!") || !strings.Contains(string(body), "21.0") {
		t.Fatalf("unexpected briefing body: %q", body)
	}
}

// TestCallbackMissingParams returns a readable 400, not a crash.
func TestCallbackMissingParams(t *testing.T) {
	app, _, _ := testApp(t, stubCalendar{}, stubWeather{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}
}

// TestCallbackInvalidState explains the problem instead of failing
// with a 5xx.
func TestCallbackInvalidState(t *testing.T) {
	app, _, _ := testApp(t, stubCalendar{}, stubWeather{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback?state=bogus&code=abc", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "invalid or has expired") {
		t.Fatalf("expected explanation, got %q", body)
	}
}

// TestCallbackSuccessPersistsCredentials completes the flow end to
// end: issued state, code exchange, stored credentials.
func TestCallbackSuccessPersistsCredentials(t *testing.T) {
	app, flows, creds := testApp(t, stubCalendar{}, stubWeather{}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"granted","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	})

	state, _ := flows.Begin()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/oauth/callback?state="+state+"&code=auth-code", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	stored, err := creds.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("credentials should be stored and valid: %v", err)
	}
	if stored.AccessToken != "granted" {
		t.Fatalf("unexpected stored token: %+v", stored)
	}
}

// TestHealthReportsAuthorizationStatus: /health shows whether a
// credential set is stored.
func TestHealthReportsAuthorizationStatus(t *testing.T) {
	app, _, creds := testApp(t, stubCalendar{}, stubWeather{}, nil)

	health := func() (status string, authorized bool) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		var payload struct {
			Status     string `json:"status"`
			Authorized bool   `json:"authorized"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return payload.Status, payload.Authorized
	}

	status, authorized := health()
	if status != "ok" || authorized {
		t.Fatalf("fresh process: status=%q authorized=%v", status, authorized)
	}

	err := creds.Save(&auth.Credentials{
		Version:     1,
		AccessToken: "access",
		Expiry:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, authorized := health(); !authorized {
		t.Fatal("expected authorized=true after credentials are stored")
	}
}

// TestIndexPage serves the usage page.
func TestIndexPage(t *testing.T) {
	app, _, _ := testApp(t, stubCalendar{}, stubWeather{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/briefing") {
		t.Fatalf("index should mention the briefing endpoint: %q", body)
	}
}
