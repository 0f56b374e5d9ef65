// Package openmeteo implements domain.WeatherSource against the Open-Meteo
// forecast API, which needs no API key.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/observability"
)

const currentFields = "relative_humidity_2m,temperature_2m,wind_speed_10m,wind_direction_10m"

// errClientStatus marks 4xx responses. They are the caller's fault and do not
// count against the circuit breaker.
var errClientStatus = errors.New("open-meteo rejected request")

// Client implements domain.WeatherSource using the Open-Meteo current
// conditions endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[domain.WeatherConditions]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. After five consecutive failures the
// breaker opens for 30s and calls fail fast with gobreaker.ErrOpenState.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker(5, 30*time.Second),
		metrics:    metrics,
		logger:     logger,
	}
}

func newBreaker(maxFailures uint32, openFor time.Duration) *gobreaker.CircuitBreaker[domain.WeatherConditions] {
	return gobreaker.NewCircuitBreaker[domain.WeatherConditions](gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errClientStatus) || errors.Is(err, context.Canceled)
		},
	})
}

// Current returns the conditions at loc. Wind speed is reported in km/h and
// tagged so downstream conversion to m/s is explicit.
func (c *Client) Current(ctx context.Context, loc domain.LatLon) (domain.WeatherConditions, error) {
	start := time.Now()
	w, err := c.breaker.Execute(func() (domain.WeatherConditions, error) {
		return c.fetch(ctx, loc)
	})
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.WeatherRequests.WithLabelValues("success").Inc()
		return w, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.WeatherRequests.WithLabelValues("rejected").Inc()
		c.logger.Warn("weather lookup short-circuited", "error", err, "lat", loc.Lat, "lon", loc.Lon)
	default:
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		c.logger.Warn("weather lookup failed", "error", err, "lat", loc.Lat, "lon", loc.Lon)
	}
	return domain.WeatherConditions{}, err
}

func (c *Client) fetch(ctx context.Context, loc domain.LatLon) (domain.WeatherConditions, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(loc.Lat, 'f', 4, 64)},
		"longitude":       {strconv.FormatFloat(loc.Lon, 'f', 4, 64)},
		"current":         {currentFields},
		"wind_speed_unit": {"kmh"},
	}
	fullURL := c.baseURL + "/v1/forecast?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return domain.WeatherConditions{}, fmt.Errorf("%w: status %d: %s", errClientStatus, resp.StatusCode, body)
		}
		return domain.WeatherConditions{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("decode response: %w", err)
	}
	return r.conditions()
}

// Open-Meteo API response types.

type response struct {
	Current      *current          `json:"current"`
	CurrentUnits map[string]string `json:"current_units"`
}

type current struct {
	Time          string   `json:"time"`
	Humidity      *float64 `json:"relative_humidity_2m"`
	Temperature   *float64 `json:"temperature_2m"`
	WindSpeed     *float64 `json:"wind_speed_10m"`
	WindDirection *float64 `json:"wind_direction_10m"`
}

func (r response) conditions() (domain.WeatherConditions, error) {
	if r.Current == nil || r.Current.Humidity == nil || r.Current.Temperature == nil {
		return domain.WeatherConditions{}, errors.New("open-meteo response missing current humidity or temperature")
	}

	unit := domain.UnitKilometersPerHr
	if u := r.CurrentUnits["wind_speed_10m"]; u != "" {
		unit = u
	}
	return domain.WeatherConditions{
		Humidity:      *r.Current.Humidity,
		Temperature:   *r.Current.Temperature,
		WindSpeed:     r.Current.WindSpeed,
		WindDirection: r.Current.WindDirection,
		WindSpeedUnit: unit,
	}, nil
}
