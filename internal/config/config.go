package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/couchcryptid/plume-triage/internal/contour"
	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/plumemap"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092" validate:"required_if=KafkaEnabled true,dive,hostname_port"`
	KafkaSourceTopic string        `envconfig:"KAFKA_SOURCE_TOPIC" default:"assessment-requests" validate:"required"`
	KafkaSinkTopic   string        `envconfig:"KAFKA_SINK_TOPIC" default:"plume-assessments" validate:"required"`
	KafkaGroupID     string        `envconfig:"KAFKA_GROUP_ID" default:"plume-triage" validate:"required"`
	KafkaEnabled     bool          `envconfig:"KAFKA_ENABLED" default:"true"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat        string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text tint"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	BatchSize          int           `envconfig:"BATCH_SIZE" default:"50" validate:"min=1,max=1000"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"500ms" validate:"gt=0"`

	// Pathogen store.
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite3" validate:"oneof=sqlite3 pgx"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:plume_triage.db?_foreign_keys=on" validate:"required"`

	// Open-Meteo weather lookup for requests that omit conditions.
	WeatherEnabled   bool          `envconfig:"WEATHER_ENABLED" default:"true"`
	WeatherBaseURL   string        `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com" validate:"url"`
	WeatherTimeout   time.Duration `envconfig:"WEATHER_TIMEOUT" default:"5s" validate:"gt=0"`
	WeatherCacheSize int           `envconfig:"WEATHER_CACHE_SIZE" default:"256" validate:"min=1"`
	WeatherCacheTTL  time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"10m" validate:"gt=0"`

	// Dispersion model.
	CoefficientCacheSize int     `envconfig:"COEFFICIENT_CACHE_SIZE" default:"1000" validate:"min=1"`
	FieldResolution      int     `envconfig:"FIELD_RESOLUTION" default:"50" validate:"min=1,max=500"`
	FieldMaxDistance     float64 `envconfig:"FIELD_MAX_DISTANCE" default:"5000" validate:"gt=0,lte=100000"`

	// Contour extraction.
	ContourGridResolution    int     `envconfig:"CONTOUR_GRID_RESOLUTION" default:"50" validate:"min=4,max=50"`
	ContourMaxPolygonPoints  int     `envconfig:"CONTOUR_MAX_POLYGON_POINTS" default:"200" validate:"min=4"`
	ContourSimplifyTolerance float64 `envconfig:"CONTOUR_SIMPLIFY_TOLERANCE" default:"5" validate:"gt=0"`

	// Pathogen-to-plume mapping.
	EmissionMultiplier  float64               `envconfig:"EMISSION_MULTIPLIER" default:"10" validate:"gt=0"`
	EmissionMin         float64               `envconfig:"EMISSION_MIN" default:"1" validate:"gte=0"`
	EmissionMax         float64               `envconfig:"EMISSION_MAX" default:"1000" validate:"gtfield=EmissionMin"`
	AirborneStackHeight float64               `envconfig:"AIRBORNE_STACK_HEIGHT" default:"50" validate:"gte=0,lte=500"`
	FluidStackHeight    float64               `envconfig:"FLUID_STACK_HEIGHT" default:"2" validate:"gte=0,lte=500"`
	GroundStackHeight   float64               `envconfig:"GROUND_STACK_HEIGHT" default:"0" validate:"gte=0,lte=500"`
	DefaultStability    domain.StabilityClass `envconfig:"DEFAULT_STABILITY" default:"D"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment variable could not be converted to
	// its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the populated struct failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError wraps a loading failure with its category.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honoured but never overrides
// variables already present in the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return &cfg, nil
}

// Contour returns the contour extraction settings.
func (c *Config) Contour() contour.Config {
	return contour.Config{
		GridResolution:          c.ContourGridResolution,
		MaxDistance:             c.FieldMaxDistance,
		MaxPolygonPoints:        c.ContourMaxPolygonPoints,
		SimplificationTolerance: c.ContourSimplifyTolerance,
	}
}

// Mapper returns the pathogen-to-plume mapping settings.
func (c *Config) Mapper() plumemap.Config {
	m := plumemap.DefaultConfig()
	m.EmissionMultiplier = c.EmissionMultiplier
	m.MinEmissionRate = c.EmissionMin
	m.MaxEmissionRate = c.EmissionMax
	m.AirborneStackHeight = c.AirborneStackHeight
	m.FluidStackHeight = c.FluidStackHeight
	m.GroundStackHeight = c.GroundStackHeight
	m.DefaultStability = c.DefaultStability
	return m
}
