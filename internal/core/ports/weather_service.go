package ports

import (
	"context"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

// WeatherProvider is the upstream weather/geocoding API. Implementations return
// domain.ErrNotFound for unknown cities and domain.ErrServiceUnavailable for any
// transport, status or decoding failure.
type WeatherProvider interface {
	Geocode(ctx context.Context, city string) (*domain.Location, error)
	Current(ctx context.Context, loc *domain.Location) (*domain.CurrentConditions, error)
	Daily(ctx context.Context, loc *domain.Location, days int) ([]domain.DailyConditions, error)
}

type WeatherService interface {
	Current(ctx context.Context, city string) (*domain.CurrentWeather, error)
	Forecast(ctx context.Context, city string) (*domain.Forecast, error)
	CacheStats() domain.CacheStats
	ClearCache()
}
