package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	// Upstream API keys. The geocoder and Gemini keys are optional;
	// missing values disable the geoposition lookup and the narrator.
	AccuWeatherAPIKey string `validate:"required"`
	GeocoderAPIKey    string
	GeminiAPIKey      string

	// Google OAuth client for calendar access.
	GoogleClientID     string `validate:"required"`
	GoogleClientSecret string `validate:"required"`
	RedirectURI        string `validate:"required,url"`

	CalendarID string
	Location   string
	Address    string

	// TokenPath is where the single credential record is persisted.
	TokenPath string

	// WeatherCacheTTL bounds how long a weather snapshot is served
	// without refetching; AuthStateTTL bounds how long a pending
	// authorization attempt stays redeemable.
	WeatherCacheTTL time.Duration
	AuthStateTTL    time.Duration

	// HTTPTimeout applies to every outbound provider call.
	HTTPTimeout time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		AccuWeatherAPIKey:  os.Getenv("ACCUWEATHER_API_KEY"),
		GeocoderAPIKey:     os.Getenv("GEOCODER_API_KEY"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURI:        getenvDefault("REDIRECT_URI", "http://localhost:8080/oauth/callback"),
		CalendarID:         getenvDefault("GOOGLE_CALENDAR_ID", "primary"),
		Location:           getenvDefault("LOCATION", "London"),
		Address:            os.Getenv("ADDRESS"),
		TokenPath:          getenvDefault("TOKEN_PATH", "token.json"),
		Port:               getenvDefault("PORT", "8080"),
	}
	if cfg.Address == "" {
		cfg.Address = cfg.Location
	}

	var err error
	if cfg.WeatherCacheTTL, err = getenvDuration("WEATHER_CACHE_TTL", time.Hour); err != nil {
		return nil, fmt.Errorf("invalid WEATHER_CACHE_TTL: %w", err)
	}
	if cfg.AuthStateTTL, err = getenvDuration("AUTH_STATE_TTL", 10*time.Minute); err != nil {
		return nil, fmt.Errorf("invalid AUTH_STATE_TTL: %w", err)
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("missing or invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	// Accept plain seconds as well as Go duration strings.
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	var secs int64
	if _, err := fmt.Sscanf(v, "%d", &secs); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("cannot parse %q as duration", v)
}
