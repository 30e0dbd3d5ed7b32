package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

// envSpec is the raw environment as read by envconfig
type envSpec struct {
	Environment        string        `envconfig:"TRANSITBOARD_ENVIRONMENT"`
	WMATAAPIKey        string        `envconfig:"WMATA_API_KEY"`
	SentryDSN          string        `envconfig:"SENTRY_DSN"`
	OTLPEnabled        bool          `envconfig:"TRANSITBOARD_OTLP_ENABLED" default:"false"`
	RailStations       []string      `envconfig:"TRANSITBOARD_RAIL_STATIONS"`
	BusStops           []string      `envconfig:"TRANSITBOARD_BUS_STOPS"`
	BikeStations       []string      `envconfig:"TRANSITBOARD_BIKE_STATIONS"`
	PredictorInterval  time.Duration `envconfig:"TRANSITBOARD_PREDICTOR_INTERVAL" default:"10s"`
	IncidentInterval   time.Duration `envconfig:"TRANSITBOARD_INCIDENT_INTERVAL" default:"60s"`
	Stagger            time.Duration `envconfig:"TRANSITBOARD_STAGGER" default:"250ms"`
	HTTPTimeout        time.Duration `envconfig:"TRANSITBOARD_HTTP_TIMEOUT" default:"10s"`
	RateLimitPerSecond float64       `envconfig:"TRANSITBOARD_RATE_LIMIT_PER_SECOND" default:"5"`
	RateLimitBurst     int           `envconfig:"TRANSITBOARD_RATE_LIMIT_BURST" default:"5"`
}

type Config struct {
	wmataAPIKey        string
	sentryDSN          string
	otlpEnabled        bool
	railStations       []string
	busStops           []string
	bikeStations       []string
	predictorInterval  time.Duration
	incidentInterval   time.Duration
	stagger            time.Duration
	httpTimeout        time.Duration
	rateLimitPerSecond float64
	rateLimitBurst     int
	env                environment
}

func (c *Config) WMATAAPIKey() string {
	return c.wmataAPIKey
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) OTLPEnabled() bool {
	return c.otlpEnabled
}

func (c *Config) RailStations() []string {
	return c.railStations
}

func (c *Config) BusStops() []string {
	return c.busStops
}

func (c *Config) BikeStations() []string {
	return c.bikeStations
}

func (c *Config) PredictorInterval() time.Duration {
	return c.predictorInterval
}

func (c *Config) IncidentInterval() time.Duration {
	return c.incidentInterval
}

func (c *Config) Stagger() time.Duration {
	return c.stagger
}

func (c *Config) HTTPTimeout() time.Duration {
	return c.httpTimeout
}

func (c *Config) RateLimitPerSecond() float64 {
	return c.rateLimitPerSecond
}

func (c *Config) RateLimitBurst() int {
	return c.rateLimitBurst
}

func (c *Config) Environment() string {
	return string(c.env)
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, otlp: %t, rail: %v, bus: %v, bikes: %v, intervals: %s/%s, stagger: %s, timeout: %s, rate: %g/%d, ...}",
		string(c.env),
		c.otlpEnabled,
		c.railStations,
		c.busStops,
		c.bikeStations,
		c.predictorInterval,
		c.incidentInterval,
		c.stagger,
		c.httpTimeout,
		c.rateLimitPerSecond,
		c.rateLimitBurst,
	)
}

// LoadDotEnv adds the variables in the given files (default .env) to the
// environment. Variables that are already set are kept, and missing files
// are ignored.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key string, value any) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%v)", ErrInvalidValue, key, value)
	}

	var spec envSpec
	if err := envconfig.Process("", &spec); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	var env environment
	switch spec.Environment {
	case "":
		return missingKey("TRANSITBOARD_ENVIRONMENT")
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("TRANSITBOARD_ENVIRONMENT", spec.Environment)
	}

	if env == production || env == staging {
		if spec.WMATAAPIKey == "" {
			return missingKey("WMATA_API_KEY")
		}
		if spec.SentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	if spec.PredictorInterval < time.Second {
		return invalidValue("TRANSITBOARD_PREDICTOR_INTERVAL", spec.PredictorInterval)
	}
	if spec.IncidentInterval < time.Second {
		return invalidValue("TRANSITBOARD_INCIDENT_INTERVAL", spec.IncidentInterval)
	}
	if spec.Stagger < 0 {
		return invalidValue("TRANSITBOARD_STAGGER", spec.Stagger)
	}
	if spec.HTTPTimeout <= 0 {
		return invalidValue("TRANSITBOARD_HTTP_TIMEOUT", spec.HTTPTimeout)
	}
	if spec.RateLimitPerSecond <= 0 {
		return invalidValue("TRANSITBOARD_RATE_LIMIT_PER_SECOND", spec.RateLimitPerSecond)
	}
	if spec.RateLimitBurst < 1 {
		return invalidValue("TRANSITBOARD_RATE_LIMIT_BURST", spec.RateLimitBurst)
	}

	return Config{
		wmataAPIKey:        spec.WMATAAPIKey,
		sentryDSN:          spec.SentryDSN,
		otlpEnabled:        spec.OTLPEnabled,
		railStations:       spec.RailStations,
		busStops:           spec.BusStops,
		bikeStations:       spec.BikeStations,
		predictorInterval:  spec.PredictorInterval,
		incidentInterval:   spec.IncidentInterval,
		stagger:            spec.Stagger,
		httpTimeout:        spec.HTTPTimeout,
		rateLimitPerSecond: spec.RateLimitPerSecond,
		rateLimitBurst:     spec.RateLimitBurst,
		env:                env,
	}, nil
}
