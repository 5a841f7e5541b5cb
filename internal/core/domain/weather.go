package domain

// Location is a geocoding match for a city name.
type Location struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

// CurrentConditions is the raw current-weather sample returned by the upstream.
type CurrentConditions struct {
	Time        string
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	WeatherCode int
}

// DailyConditions is one day of the raw upstream forecast.
type DailyConditions struct {
	Date          string
	MaxTemp       float64
	MinTemp       float64
	WeatherCode   int
	Precipitation float64
}

// CurrentWeather is the payload served (and cached) for GET /weather/{city}.
type CurrentWeather struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Condition   string  `json:"condition"`
	Timestamp   string  `json:"timestamp"`
}

// DailyForecast is one entry of the forecast payload.
type DailyForecast struct {
	Date            string  `json:"date"`
	MaxTemp         float64 `json:"max_temp"`
	MinTemp         float64 `json:"min_temp"`
	Condition       string  `json:"condition"`
	PrecipitationMM float64 `json:"precipitation_mm"`
}

// Forecast is the payload served (and cached) for GET /weather/forecast/{city}.
type Forecast struct {
	City     string          `json:"city"`
	Country  string          `json:"country"`
	Forecast []DailyForecast `json:"forecast"`
}

// CacheStats is a point-in-time snapshot of the weather cache.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// wmoConditions maps WMO weather interpretation codes to descriptions.
var wmoConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Drizzle: Light",
	53: "Drizzle: Moderate",
	55: "Drizzle: Dense",
	61: "Rain: Slight",
	63: "Rain: Moderate",
	65: "Rain: Heavy",
	71: "Snow: Slight",
	73: "Snow: Moderate",
	75: "Snow: Heavy",
	77: "Snow grains",
	80: "Rain showers: Slight",
	81: "Rain showers: Moderate",
	82: "Rain showers: Violent",
	95: "Thunderstorm: Slight or Moderate",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// ConditionFromWMO returns the description for a WMO code, or "Unknown".
func ConditionFromWMO(code int) string {
	if c, ok := wmoConditions[code]; ok {
		return c
	}
	return "Unknown"
}
