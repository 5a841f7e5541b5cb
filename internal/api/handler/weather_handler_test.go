package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

type stubWeatherService struct {
	currentFn  func(ctx context.Context, city string) (*domain.CurrentWeather, error)
	forecastFn func(ctx context.Context, city string) (*domain.Forecast, error)
	stats      domain.CacheStats
	cleared    int
}

func (s *stubWeatherService) Current(ctx context.Context, city string) (*domain.CurrentWeather, error) {
	return s.currentFn(ctx, city)
}

func (s *stubWeatherService) Forecast(ctx context.Context, city string) (*domain.Forecast, error) {
	return s.forecastFn(ctx, city)
}

func (s *stubWeatherService) CacheStats() domain.CacheStats { return s.stats }

func (s *stubWeatherService) ClearCache() { s.cleared++ }

func TestWeatherHandler_Current(t *testing.T) {
	stub := &stubWeatherService{
		currentFn: func(_ context.Context, city string) (*domain.CurrentWeather, error) {
			if city != "London" {
				return nil, domain.NotFound("City '" + city + "' not found.")
			}
			return &domain.CurrentWeather{City: "London", Country: "United Kingdom", Temperature: 7.5, Unit: "Celsius"}, nil
		},
	}
	h := NewWeatherHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/weather/London", "", "")
	withParam(c, "city", "London")
	if err := h.Current(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.CurrentWeather
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.City != "London" || resp.Unit != "Celsius" {
		t.Fatalf("unexpected payload %+v", resp)
	}

	c, _ = newTestContext(t, http.MethodGet, "/weather/Atlantis", "", "")
	withParam(c, "city", "Atlantis")
	if err := h.Current(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWeatherHandler_Forecast_Unavailable(t *testing.T) {
	stub := &stubWeatherService{
		forecastFn: func(context.Context, string) (*domain.Forecast, error) {
			return nil, domain.Unavailable("Weather service unavailable", errors.New("timeout"))
		},
	}
	h := NewWeatherHandler(stub)

	c, _ := newTestContext(t, http.MethodGet, "/weather/forecast/Paris", "", "")
	withParam(c, "city", "Paris")
	if err := h.Forecast(c); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

func TestWeatherHandler_CacheEndpoints(t *testing.T) {
	stub := &stubWeatherService{stats: domain.CacheStats{Hits: 2, Misses: 1, Size: 1}}
	h := NewWeatherHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/weather/cache-status", "", "")
	if err := h.CacheStatus(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Body.String() != "{\"hits\":2,\"misses\":1,\"size\":1}\n" {
		t.Fatalf("unexpected stats body %q", rec.Body.String())
	}

	c, rec = newTestContext(t, http.MethodDelete, "/weather/cache", "", "")
	if err := h.ClearCache(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.cleared != 1 {
		t.Fatalf("expected cache to be cleared")
	}
	if rec.Body.String() != "{\"message\":\"Cache invalidated successfully\"}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
