package briefing

import (
	"fmt"
	"strings"
)

// FallbackSummary assembles the deterministic plain-text briefing used
// when no narrator is configured or narration fails. It is computed
// locally from the structured input, with no external call.
func FallbackSummary(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Good morning! Today is %s.", in.Date.Format("Monday, January 2, 2006"))

	if in.WeatherAvailable {
		fmt.Fprintf(&b, " Current weather in %s: %s, %.1f°C.",
			in.Location, in.Weather.Current.Condition, in.Weather.Current.Temperature)
		fmt.Fprintf(&b, " Today's forecast: %s with temperatures between %.1f°C and %.1f°C.",
			in.Weather.Forecast.Condition, in.Weather.Forecast.MinTemperature, in.Weather.Forecast.MaxTemperature)
	} else {
		b.WriteString(" Weather information is unavailable right now.")
	}

	switch {
	case !in.CalendarAvailable:
		b.WriteString(" Your calendar is unavailable right now.")
	case len(in.Events) == 0:
		b.WriteString(" No events scheduled for today.")
	default:
		b.WriteString(" Today's events:")
		for _, ev := range in.Events {
			if ev.AllDay {
				fmt.Fprintf(&b, " %s (all day).", ev.Summary)
			} else {
				fmt.Fprintf(&b, " %s at %s.", ev.Summary, ev.Start.Format("3:04 PM"))
			}
		}
	}

	return b.String()
}
