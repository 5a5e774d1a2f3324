// Package narrator generates briefing prose with the Gemini API.
package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/i474232898/morning-briefing/internal/briefing"
)

// DefaultModel is used unless overridden with WithModel.
const DefaultModel = "gemini-2.0-flash"

// DefaultTimeout caps one generation call unless overridden with
// WithTimeout.
const DefaultTimeout = 10 * time.Second

// Gemini narrates briefings through the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Option configures the narrator.
type Option func(*Gemini)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(g *Gemini) {
		g.model = model
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(g *Gemini) {
		g.timeout = d
	}
}

// NewGemini creates a Gemini narrator.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &Gemini{
		client:  client,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Narrate generates the morning summary for the given input.
func (g *Gemini) Narrate(ctx context.Context, in briefing.Input) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := genai.Text(buildPrompt(in))
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate briefing: %w", err)
	}
	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return strings.TrimSpace(text), nil
}

func buildPrompt(in briefing.Input) string {
	var events strings.Builder
	for _, ev := range in.Events {
		if ev.AllDay {
			fmt.Fprintf(&events, "- %s (all day)\n", ev.Summary)
		} else {
			fmt.Fprintf(&events, "- %s at %s\n", ev.Summary, ev.Start.Format("3:04 PM"))
		}
	}
	eventsText := events.String()
	if !in.CalendarAvailable {
		eventsText = "Calendar information not available."
	} else if eventsText == "" {
		eventsText = "No events scheduled for today."
	}

	weatherText := "Weather information not available."
	if in.WeatherAvailable {
		weatherText = fmt.Sprintf("Current weather: %s, %.1f°C. Today's forecast: %s with temperatures between %.1f°C and %.1f°C.",
			in.Weather.Current.Condition, in.Weather.Current.Temperature,
			in.Weather.Forecast.Condition, in.Weather.Forecast.MinTemperature, in.Weather.Forecast.MaxTemperature)
	}

	return fmt.Sprintf(`Create a LOUD, ENTHUSIASTIC, and FRIENDLY morning summary for someone in %s.

Today's Date: %s

Weather:
%s

Today's Events:
%s

Make the summary LOUD (use capital letters for emphasis), high-energy, motivational, and uplifting.
Use lots of exclamation marks! Be VERY excited about the day ahead!
Keep it concise (around 150 words). Include specific references to the weather and events.`,
		in.Location,
		in.Date.Format("Monday, January 2, 2006"),
		weatherText,
		eventsText,
	)
}
