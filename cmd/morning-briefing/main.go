package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/morning-briefing/internal/api/http"
	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/briefing"
	"github.com/i474232898/morning-briefing/internal/calendar"
	"github.com/i474232898/morning-briefing/internal/config"
	"github.com/i474232898/morning-briefing/internal/narrator"
	"github.com/i474232898/morning-briefing/internal/scheduler"
	"github.com/i474232898/morning-briefing/internal/weather"
)

func main() {
	// Load configuration (reads .env if present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Credential lifecycle and pending authorization flows.
	oauthConf := auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURI)
	credStore := auth.NewStore(cfg.TokenPath, oauthConf, httpClient)
	flows := auth.NewFlowRegistry(oauthConf, cfg.AuthStateTTL, httpClient)

	// Weather through the last-good cache.
	accuweather := weather.NewAccuWeather(httpClient, cfg.AccuWeatherAPIKey, cfg.GeocoderAPIKey, cfg.Address, cfg.Location)
	weatherSource := weather.NewSource(accuweather, cfg.WeatherCacheTTL)

	// Today's calendar events through the credential store.
	calendarClient := calendar.NewClient(httpClient, credStore, cfg.CalendarID)

	// Narrator is optional; without a key every briefing uses the
	// deterministic local summary.
	var narrate briefing.Narrator
	if cfg.GeminiAPIKey != "" {
		gemini, err := narrator.NewGemini(context.Background(), cfg.GeminiAPIKey,
			narrator.WithTimeout(cfg.HTTPTimeout))
		if err != nil {
			log.Fatalf("failed to create narrator: %v", err)
		}
		narrate = gemini
	} else {
		log.Printf("INFO: GEMINI_API_KEY not set; narration disabled")
	}

	agg := briefing.New(calendarClient, weatherSource, flows, narrate, cfg.Location)

	// Background jobs: state sweeping and weather cache warm-up.
	sched := scheduler.New(flows, weatherSource, cfg.WeatherCacheTTL)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "morning-briefing",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, agg, flows, credStore)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
