// Package briefing assembles the morning briefing from the calendar
// and weather sources, applying the degradation policy when either is
// unavailable.
package briefing

import (
	"context"
	"time"

	"github.com/i474232898/morning-briefing/internal/calendar"
	"github.com/i474232898/morning-briefing/internal/weather"
)

// Input is the structured material a briefing is produced from. When a
// source failed, its Available flag is false and its data is zero.
type Input struct {
	Date              time.Time
	Location          string
	Events            []calendar.Event
	CalendarAvailable bool
	Weather           weather.Snapshot
	WeatherAvailable  bool
}

// Narrator turns a briefing input into prose. Implementations are
// replaceable; a failure never reaches the end user because the
// aggregator falls back to the deterministic local summary.
type Narrator interface {
	Narrate(ctx context.Context, in Input) (string, error)
}

// Kind classifies an aggregate outcome.
type Kind string

const (
	// KindBriefing is a narrated or locally assembled briefing,
	// including partial ones carrying an unavailable marker.
	KindBriefing Kind = "briefing"
	// KindAuthorizationRequired means the user must visit the
	// authorization URL before a briefing can be produced.
	KindAuthorizationRequired Kind = "authorization_required"
	// KindDegraded is the fixed date-only message used when both
	// sources failed.
	KindDegraded Kind = "degraded"
)

// Result is the aggregate outcome handed to the web layer.
type Result struct {
	Kind             Kind
	Text             string
	AuthorizationURL string
}
