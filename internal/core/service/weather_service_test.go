package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FreeRikato/classroom-api/internal/core/domain"
	"github.com/FreeRikato/classroom-api/internal/infrastructure/cache"
)

type stubProvider struct {
	geocodeCalls atomic.Int32
	currentCalls atomic.Int32
	dailyCalls   atomic.Int32
	gate         chan struct{} // when non-nil Geocode waits on it
	geocodeErr   error
	currentErr   error
}

func (p *stubProvider) Geocode(_ context.Context, city string) (*domain.Location, error) {
	p.geocodeCalls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	if p.geocodeErr != nil {
		return nil, p.geocodeErr
	}
	return &domain.Location{Name: city, Country: "United Kingdom", Latitude: 51.5, Longitude: -0.12}, nil
}

func (p *stubProvider) Current(_ context.Context, _ *domain.Location) (*domain.CurrentConditions, error) {
	p.currentCalls.Add(1)
	if p.currentErr != nil {
		return nil, p.currentErr
	}
	return &domain.CurrentConditions{Time: "2026-01-01T12:00", Temperature: 7.5, Humidity: 81, WindSpeed: 12.3, WeatherCode: 3}, nil
}

func (p *stubProvider) Daily(_ context.Context, _ *domain.Location, days int) ([]domain.DailyConditions, error) {
	p.dailyCalls.Add(1)
	out := make([]domain.DailyConditions, days)
	for i := range out {
		out[i] = domain.DailyConditions{Date: fmt.Sprintf("2026-01-%02d", i+1), MaxTemp: 9, MinTemp: 2, WeatherCode: 61, Precipitation: 1.2}
	}
	return out, nil
}

type countingRecorder struct {
	mu     sync.Mutex
	hits   int
	misses int
	size   int
}

func (r *countingRecorder) CacheLookup(_ string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *countingRecorder) CacheSize(n int) {
	r.mu.Lock()
	r.size = n
	r.mu.Unlock()
}

func TestWeatherService_Current_CachesPayload(t *testing.T) {
	provider := &stubProvider{}
	rec := &countingRecorder{}
	svc := NewWeatherService(provider, zerolog.Nop(), WithCacheRecorder(rec))

	first, err := svc.Current(context.Background(), "London")
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if first.Condition != "Overcast" || first.Unit != "Celsius" || first.City != "London" {
		t.Fatalf("unexpected payload %+v", first)
	}

	a, _ := svc.Current(context.Background(), "london")
	b, _ := svc.Current(context.Background(), "LONDON")
	if a != first || b != first {
		t.Fatalf("expected cached payload to be returned")
	}

	stats := svc.CacheStats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if provider.geocodeCalls.Load() != 1 || provider.currentCalls.Load() != 1 {
		t.Fatalf("expected one upstream fetch, got geocode=%d current=%d", provider.geocodeCalls.Load(), provider.currentCalls.Load())
	}
	if rec.hits != 2 || rec.misses != 1 || rec.size != 1 {
		t.Fatalf("unexpected recorder state %+v", rec)
	}
}

func TestWeatherService_Forecast(t *testing.T) {
	provider := &stubProvider{}
	svc := NewWeatherService(provider, zerolog.Nop(), WithForecastDays(3))

	fc, err := svc.Forecast(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}
	if len(fc.Forecast) != 3 {
		t.Fatalf("expected 3 days, got %d", len(fc.Forecast))
	}
	if fc.Forecast[0].Condition != "Rain: Slight" || fc.Forecast[0].PrecipitationMM != 1.2 {
		t.Fatalf("unexpected day %+v", fc.Forecast[0])
	}

	// current and forecast use separate keys
	if _, err := svc.Current(context.Background(), "Paris"); err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if got := svc.CacheStats().Size; got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestWeatherService_ExpiryRefetches(t *testing.T) {
	clock := newFakeClock()
	provider := &stubProvider{}
	svc := NewWeatherService(provider, zerolog.Nop(),
		WithCacheTTL(time.Minute),
		WithWeatherCache(cache.New[any](cache.WithClock[any](clock.Now))))

	_, _ = svc.Current(context.Background(), "Oslo")
	clock.Advance(time.Minute)
	_, _ = svc.Current(context.Background(), "Oslo")
	if provider.currentCalls.Load() != 1 {
		t.Fatalf("expected entry to be valid at exactly ttl")
	}

	clock.Advance(time.Second)
	_, _ = svc.Current(context.Background(), "Oslo")
	if provider.currentCalls.Load() != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", provider.currentCalls.Load())
	}
}

func TestWeatherService_ErrorsAreNotCached(t *testing.T) {
	provider := &stubProvider{geocodeErr: domain.NotFound("City 'Atlantis' not found.")}
	svc := NewWeatherService(provider, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := svc.Current(context.Background(), "Atlantis"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if provider.geocodeCalls.Load() != 2 {
		t.Fatalf("failures must not be cached")
	}
	if svc.CacheStats().Size != 0 {
		t.Fatalf("expected empty cache")
	}

	provider.geocodeErr = nil
	provider.currentErr = domain.Unavailable("Weather service unavailable", errors.New("502"))
	if _, err := svc.Current(context.Background(), "Atlantis"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

func TestWeatherService_Validation(t *testing.T) {
	svc := NewWeatherService(&stubProvider{}, zerolog.Nop())
	if _, err := svc.Current(context.Background(), "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.CacheStats().Misses != 0 {
		t.Fatalf("validation failures must not touch the cache")
	}
}

func TestWeatherService_ClearCache(t *testing.T) {
	svc := NewWeatherService(&stubProvider{}, zerolog.Nop())
	_, _ = svc.Current(context.Background(), "Rome")
	_, _ = svc.Current(context.Background(), "Rome")

	svc.ClearCache()
	if stats := svc.CacheStats(); stats.Hits != 0 || stats.Misses != 0 || stats.Size != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}

	_, _ = svc.Current(context.Background(), "Rome")
	if stats := svc.CacheStats(); stats.Misses != 1 {
		t.Fatalf("expected a miss after clear, got %+v", stats)
	}
}

func TestWeatherService_ConcurrentMissesShareFetch(t *testing.T) {
	provider := &stubProvider{gate: make(chan struct{})}
	svc := NewWeatherService(provider, zerolog.Nop())

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Current(context.Background(), "Berlin"); err != nil {
				t.Errorf("Current returned error: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.CacheStats().Misses < callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	if got := provider.geocodeCalls.Load(); got != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", got)
	}
}
