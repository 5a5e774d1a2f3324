package briefing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/calendar"
	"github.com/i474232898/morning-briefing/internal/weather"
)

// CalendarSource yields today's events, auth.ErrAuthorizationRequired,
// or an ordinary fetch error.
type CalendarSource interface {
	TodayEvents(ctx context.Context, now time.Time) ([]calendar.Event, error)
}

// WeatherSource yields the current snapshot or a fetch error.
type WeatherSource interface {
	Fetch(ctx context.Context) (weather.Snapshot, error)
}

// Aggregator fans out to the calendar and weather sources and decides,
// per request, whether to proceed, degrade, or demand authorization.
type Aggregator struct {
	calendar CalendarSource
	weather  WeatherSource
	flows    *auth.FlowRegistry
	narrator Narrator // nil disables narration
	location string
	now      func() time.Time
}

// New creates an Aggregator. A nil narrator means every briefing uses
// the deterministic local summary.
func New(cal CalendarSource, wx WeatherSource, flows *auth.FlowRegistry, narrator Narrator, location string) *Aggregator {
	return &Aggregator{
		calendar: cal,
		weather:  wx,
		flows:    flows,
		narrator: narrator,
		location: location,
		now:      time.Now,
	}
}

// Briefing produces the aggregate outcome for one request. The policy,
// in order: a calendar authorization signal wins outright; both
// sources failing yields the fixed date-only message; otherwise a
// briefing is built from whatever succeeded, narrated when possible.
func (a *Aggregator) Briefing(ctx context.Context) (Result, error) {
	now := a.now()

	type calResult struct {
		events []calendar.Event
		err    error
	}
	type wxResult struct {
		snapshot weather.Snapshot
		err      error
	}

	calCh := make(chan calResult, 1)
	wxCh := make(chan wxResult, 1)

	go func() {
		events, err := a.calendar.TodayEvents(ctx, now)
		calCh <- calResult{events: events, err: err}
	}()
	go func() {
		snapshot, err := a.weather.Fetch(ctx)
		wxCh <- wxResult{snapshot: snapshot, err: err}
	}()

	cal := <-calCh
	wx := <-wxCh

	if errors.Is(cal.err, auth.ErrAuthorizationRequired) {
		state, authURL := a.flows.Begin()
		log.Printf("briefing: authorization required, issued state %s", state)
		return Result{Kind: KindAuthorizationRequired, AuthorizationURL: authURL}, nil
	}

	if cal.err != nil && wx.err != nil {
		log.Printf("briefing: calendar and weather both unavailable: calendar: %v; weather: %v", cal.err, wx.err)
		text := fmt.Sprintf("Good morning! Today is %s. Your briefing is temporarily unavailable, please try again shortly.",
			now.Format("Monday, January 2, 2006"))
		return Result{Kind: KindDegraded, Text: text}, nil
	}

	if cal.err != nil {
		log.Printf("briefing: calendar unavailable, degrading: %v", cal.err)
	}
	if wx.err != nil {
		log.Printf("briefing: weather unavailable, degrading: %v", wx.err)
	}

	in := Input{
		Date:              now,
		Location:          a.location,
		Events:            cal.events,
		CalendarAvailable: cal.err == nil,
		Weather:           wx.snapshot,
		WeatherAvailable:  wx.err == nil,
	}

	if a.narrator != nil {
		text, err := a.narrator.Narrate(ctx, in)
		if err == nil && text != "" {
			return Result{Kind: KindBriefing, Text: text}, nil
		}
		log.Printf("briefing: narration unavailable, using local summary: %v", err)
	}

	return Result{Kind: KindBriefing, Text: FallbackSummary(in)}, nil
}
