package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"DB_PATH" default:"./data/flareweather.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	RunMode  string `envconfig:"RUN_MODE" default:"schedule"` // schedule|preprime|dispatch

	// Trigger times are wall-clock HH:MM in ReferenceTZ. NotifyAt must be
	// at least MinGap after PrePrimeAt so the prime batch can
	// substantially complete first; the gap is an allowance, not a
	// barrier.
	ReferenceTZ string        `envconfig:"REFERENCE_TZ" default:"Europe/Berlin"`
	PrePrimeAt  string        `envconfig:"PREPRIME_AT" default:"06:45"`
	NotifyAt    string        `envconfig:"NOTIFY_AT" default:"07:30"`
	MinGap      time.Duration `envconfig:"MIN_GAP" default:"15m"`

	Workers      int           `envconfig:"WORKERS" default:"8"`
	CallTimeout  time.Duration `envconfig:"CALL_TIMEOUT" default:"10s"`
	ActiveWithin time.Duration `envconfig:"ACTIVE_WITHIN" default:"720h"` // trailing activity window

	DirectoryBaseURL string `envconfig:"DIRECTORY_BASE_URL" required:"true"`
	WeatherBaseURL   string `envconfig:"WEATHER_BASE_URL" required:"true"`
	PushBaseURL      string `envconfig:"PUSH_BASE_URL" required:"true"`
	PushAPIKey       string `envconfig:"PUSH_API_KEY" default:""`

	// Client-side rate limits for the external collaborators.
	WeatherRPS float64 `envconfig:"WEATHER_RPS" default:"5"`
	PushRPS    float64 `envconfig:"PUSH_RPS" default:"20"`
}

// Schedule is the validated trigger plan derived from a Config.
type Schedule struct {
	Loc        *time.Location
	PrePrimeAt domain.WallClock
	NotifyAt   domain.WallClock
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Schedule parses and validates the trigger configuration: both wall
// clocks, the reference zone, and the minimum prime→notify gap.
func (c Config) Schedule() (Schedule, error) {
	loc, err := domain.ValidateTZ(c.ReferenceTZ)
	if err != nil {
		return Schedule{}, fmt.Errorf("reference tz: %w", err)
	}
	prime, err := domain.ParseWallClock(c.PrePrimeAt)
	if err != nil {
		return Schedule{}, fmt.Errorf("preprime at: %w", err)
	}
	notify, err := domain.ParseWallClock(c.NotifyAt)
	if err != nil {
		return Schedule{}, fmt.Errorf("notify at: %w", err)
	}
	gapM := int(c.MinGap.Minutes())
	if notify.Minutes() < prime.Minutes()+gapM {
		return Schedule{}, fmt.Errorf("notify time %s must be at least %s after preprime time %s",
			notify, c.MinGap, prime)
	}
	return Schedule{Loc: loc, PrePrimeAt: prime, NotifyAt: notify}, nil
}

// Validate checks the non-schedule knobs.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	switch c.RunMode {
	case "schedule", "preprime", "dispatch":
	default:
		return fmt.Errorf("unknown run mode %q", c.RunMode)
	}
	_, err := c.Schedule()
	return err
}
