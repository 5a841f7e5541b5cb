package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/core/ports"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/cache"
)

const (
	defaultWeatherTTL   = 10 * time.Minute
	defaultForecastDays = 5
	temperatureUnit     = "Celsius"
)

// CacheRecorder observes cache lookups. The metrics package implements it.
type CacheRecorder interface {
	CacheLookup(kind string, hit bool)
	CacheSize(n int)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(string, bool) {}
func (nopRecorder) CacheSize(int) {}

// WeatherService serves current weather and forecasts through a read-through
// TTL cache. Concurrent misses for the same key share one upstream fetch.
type WeatherService struct {
	provider ports.WeatherProvider
	cache    *cache.TTLCache[any]
	group    singleflight.Group
	ttl      time.Duration
	days     int
	recorder CacheRecorder
	logger   zerolog.Logger
}

type WeatherOption func(*WeatherService)

func WithCacheTTL(ttl time.Duration) WeatherOption {
	return func(s *WeatherService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithForecastDays(days int) WeatherOption {
	return func(s *WeatherService) {
		if days > 0 {
			s.days = days
		}
	}
}

func WithCacheRecorder(r CacheRecorder) WeatherOption {
	return func(s *WeatherService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithWeatherCache swaps the backing cache, mostly to inject a clock in tests.
func WithWeatherCache(c *cache.TTLCache[any]) WeatherOption {
	return func(s *WeatherService) { s.cache = c }
}

func NewWeatherService(provider ports.WeatherProvider, logger zerolog.Logger, opts ...WeatherOption) *WeatherService {
	s := &WeatherService{
		provider: provider,
		cache:    cache.New[any](),
		ttl:      defaultWeatherTTL,
		days:     defaultForecastDays,
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", domain.Validation("City is required")
	}
	return city, nil
}

func (s *WeatherService) Current(ctx context.Context, city string) (*domain.CurrentWeather, error) {
	city, err := normalizeCity(city)
	if err != nil {
		return nil, err
	}

	v, err := s.readThrough(ctx, "current", "current_"+strings.ToLower(city), func(ctx context.Context) (any, error) {
		loc, err := s.provider.Geocode(ctx, city)
		if err != nil {
			return nil, err
		}
		cond, err := s.provider.Current(ctx, loc)
		if err != nil {
			return nil, err
		}
		return &domain.CurrentWeather{
			City:        loc.Name,
			Country:     loc.Country,
			Temperature: cond.Temperature,
			Unit:        temperatureUnit,
			Humidity:    cond.Humidity,
			WindSpeed:   cond.WindSpeed,
			Condition:   domain.ConditionFromWMO(cond.WeatherCode),
			Timestamp:   cond.Time,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CurrentWeather), nil
}

func (s *WeatherService) Forecast(ctx context.Context, city string) (*domain.Forecast, error) {
	city, err := normalizeCity(city)
	if err != nil {
		return nil, err
	}

	v, err := s.readThrough(ctx, "forecast", "forecast_"+strings.ToLower(city), func(ctx context.Context) (any, error) {
		loc, err := s.provider.Geocode(ctx, city)
		if err != nil {
			return nil, err
		}
		daily, err := s.provider.Daily(ctx, loc, s.days)
		if err != nil {
			return nil, err
		}

		days := make([]domain.DailyForecast, 0, len(daily))
		for _, d := range daily {
			days = append(days, domain.DailyForecast{
				Date:            d.Date,
				MaxTemp:         d.MaxTemp,
				MinTemp:         d.MinTemp,
				Condition:       domain.ConditionFromWMO(d.WeatherCode),
				PrecipitationMM: d.Precipitation,
			})
		}
		return &domain.Forecast{City: loc.Name, Country: loc.Country, Forecast: days}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Forecast), nil
}

// readThrough returns the cached value for key or runs fetch once for all
// concurrent callers and caches a successful result. Failures are never cached.
func (s *WeatherService) readThrough(ctx context.Context, kind, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		s.recorder.CacheLookup(kind, true)
		return v, nil
	}
	s.recorder.CacheLookup(kind, false)

	// Detached from the caller's cancellation; the provider enforces its own timeout.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, v, s.ttl)
		s.recorder.CacheSize(s.cache.Stats().Size)
		return v, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			s.logger.Warn().Err(err).Str("key", key).Msg("weather upstream failed")
		}
		return nil, err
	}
	return v, nil
}

func (s *WeatherService) CacheStats() domain.CacheStats {
	st := s.cache.Stats()
	return domain.CacheStats{Hits: st.Hits, Misses: st.Misses, Size: st.Size}
}

func (s *WeatherService) ClearCache() {
	s.cache.Clear()
	s.recorder.CacheSize(0)
	s.logger.Info().Msg("weather cache cleared")
}

var _ ports.WeatherService = (*WeatherService)(nil)
