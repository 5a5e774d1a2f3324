// Package calendar fetches today's events from the Google Calendar API
// using the stored credential set.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/upstream"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Event is a single calendar entry for today. Immutable, sourced per
// request, never persisted.
type Event struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AllDay  bool      `json:"allDay,omitempty"`
}

// CredentialSource yields valid credentials or ErrAuthorizationRequired.
type CredentialSource interface {
	EnsureValid(ctx context.Context) (*auth.Credentials, error)
}

// Client lists today's events for one calendar.
type Client struct {
	calendarID string
	baseURL    string
	creds      CredentialSource
	httpCfg    upstream.ClientConfig
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a calendar client reading through creds.
func NewClient(httpClient *http.Client, creds CredentialSource, calendarID string) *Client {
	return &Client{
		calendarID: calendarID,
		baseURL:    defaultBaseURL,
		creds:      creds,
		httpCfg:    upstream.DefaultClientConfig(httpClient),
		circuit:    upstream.NewBreaker("google-calendar"),
	}
}

// TodayEvents returns the events between midnight and end of day in
// now's location, ordered by start time. A missing or unrefreshable
// credential surfaces as auth.ErrAuthorizationRequired; so does a 401
// from the API, which means the token was revoked out of band. Other
// failures are ordinary fetch errors.
func (c *Client) TodayEvents(ctx context.Context, now time.Time) ([]Event, error) {
	creds, err := c.creds.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("timeMin", dayStart.Format(time.RFC3339))
		values.Set("timeMax", dayEnd.Format(time.RFC3339))
		values.Set("singleEvents", "true")
		values.Set("orderBy", "startTime")

		u := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(c.calendarID), values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		return req, nil
	}

	resp, err := upstream.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return nil, auth.ErrAuthorizationRequired
		}
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Items []struct {
			Summary string `json:"summary"`
			Start   struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(payload.Items))
	for _, item := range payload.Items {
		ev := Event{Summary: item.Summary}

		start, allDay, err := parseEventTime(item.Start.DateTime, item.Start.Date, now.Location())
		if err != nil {
			return nil, fmt.Errorf("parse event start: %w", err)
		}
		end, _, err := parseEventTime(item.End.DateTime, item.End.Date, now.Location())
		if err != nil {
			return nil, fmt.Errorf("parse event end: %w", err)
		}

		ev.Start = start
		ev.End = end
		ev.AllDay = allDay
		events = append(events, ev)
	}

	return events, nil
}

// parseEventTime handles both timed events (dateTime) and all-day
// events, which carry a bare date.
func parseEventTime(dateTime, date string, loc *time.Location) (time.Time, bool, error) {
	if dateTime != "" {
		t, err := time.Parse(time.RFC3339, dateTime)
		return t, false, err
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	return t, true, err
}
