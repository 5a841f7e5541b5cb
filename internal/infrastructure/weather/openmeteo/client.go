// Package openmeteo is the upstream weather provider backed by the Open-Meteo
// geocoding and forecast APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	defaultTimeout = 5 * time.Second

	msgUnavailable = "Weather service unavailable"
)

// Config holds the upstream endpoints and client limits.
type Config struct {
	GeocodingURL string
	ForecastURL  string
	Timeout      time.Duration
	// RPS and Burst throttle outbound calls; RPS <= 0 disables the throttle.
	RPS   float64
	Burst int
}

// Recorder observes upstream calls. The metrics package implements it.
type Recorder interface {
	UpstreamRequest(endpoint, outcome string, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) UpstreamRequest(string, string, time.Duration) {}

type Client struct {
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
	timeout      time.Duration
	limiter      *rate.Limiter
	recorder     Recorder
	logger       zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithRecorder(r Recorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.recorder = r
		}
	}
}

func New(cfg Config, logger zerolog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	geo := cfg.GeocodingURL
	if geo == "" {
		geo = DefaultGeocodingURL
	}
	fc := cfg.ForecastURL
	if fc == "" {
		fc = DefaultForecastURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		geocodingURL: geo,
		forecastURL:  fc,
		timeout:      timeout,
		limiter:      limiter,
		recorder:     nopRecorder{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type currentResponse struct {
	Current *struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

type dailyResponse struct {
	Daily *struct {
		Time          []string  `json:"time"`
		MaxTemp       []float64 `json:"temperature_2m_max"`
		MinTemp       []float64 `json:"temperature_2m_min"`
		WeatherCode   []int     `json:"weather_code"`
		Precipitation []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Geocode returns the best match for city, or NotFound when there is none.
func (c *Client) Geocode(ctx context.Context, city string) (*domain.Location, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var body geocodingResponse
	if err := c.getJSON(ctx, "geocoding", c.geocodingURL, params, &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, domain.NotFound(fmt.Sprintf("City '%s' not found.", city))
	}

	r := body.Results[0]
	return &domain.Location{Name: r.Name, Country: r.Country, Latitude: r.Latitude, Longitude: r.Longitude}, nil
}

func (c *Client) Current(ctx context.Context, loc *domain.Location) (*domain.CurrentConditions, error) {
	params := coordinates(loc)
	params.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	params.Set("timezone", "auto")

	var body currentResponse
	if err := c.getJSON(ctx, "current", c.forecastURL, params, &body); err != nil {
		return nil, err
	}
	if body.Current == nil {
		return nil, domain.Unavailable(msgUnavailable, fmt.Errorf("current block missing"))
	}

	cur := body.Current
	return &domain.CurrentConditions{
		Time:        cur.Time,
		Temperature: cur.Temperature,
		Humidity:    cur.Humidity,
		WindSpeed:   cur.WindSpeed,
		WeatherCode: cur.WeatherCode,
	}, nil
}

func (c *Client) Daily(ctx context.Context, loc *domain.Location, days int) ([]domain.DailyConditions, error) {
	params := coordinates(loc)
	params.Set("daily", "temperature_2m_max,temperature_2m_min,weather_code,precipitation_sum")
	params.Set("forecast_days", strconv.Itoa(days))
	params.Set("timezone", "auto")

	var body dailyResponse
	if err := c.getJSON(ctx, "forecast", c.forecastURL, params, &body); err != nil {
		return nil, err
	}
	d := body.Daily
	if d == nil {
		return nil, domain.Unavailable(msgUnavailable, fmt.Errorf("daily block missing"))
	}
	n := len(d.Time)
	if len(d.MaxTemp) != n || len(d.MinTemp) != n || len(d.WeatherCode) != n || len(d.Precipitation) != n {
		return nil, domain.Unavailable(msgUnavailable, fmt.Errorf("daily arrays have mismatched lengths"))
	}

	out := make([]domain.DailyConditions, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.DailyConditions{
			Date:          d.Time[i],
			MaxTemp:       d.MaxTemp[i],
			MinTemp:       d.MinTemp[i],
			WeatherCode:   d.WeatherCode[i],
			Precipitation: d.Precipitation[i],
		})
	}
	return out, nil
}

func coordinates(loc *domain.Location) url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	return params
}

// getJSON performs one throttled, time-bounded GET. Every failure is reported
// as ServiceUnavailable with the cause attached for logs.
func (c *Client) getJSON(ctx context.Context, endpoint, base string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	outcome := "error"
	defer func() { c.recorder.UpstreamRequest(endpoint, outcome, time.Since(start)) }()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "throttled"
		return domain.Unavailable(msgUnavailable, fmt.Errorf("upstream throttle: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Unavailable(msgUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("weather upstream request failed")
		return domain.Unavailable(msgUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("weather upstream returned error status")
		return domain.Unavailable(msgUnavailable, fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Unavailable(msgUnavailable, fmt.Errorf("decode upstream body: %w", err))
	}

	outcome = "ok"
	return nil
}

var _ ports.WeatherProvider = (*Client)(nil)
