package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

type WeatherHandler struct {
	service ports.WeatherService
}

func NewWeatherHandler(service ports.WeatherService) *WeatherHandler {
	return &WeatherHandler{service: service}
}

// Current handles GET /weather/:city.
//
// @Summary      Current weather for a city
// @Tags         weather
// @Produce      json
// @Param        city  path      string  true  "City name"
// @Success      200   {object}  domain.CurrentWeather
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /weather/{city} [get]
func (h *WeatherHandler) Current(c echo.Context) error {
	w, err := h.service.Current(c.Request().Context(), c.Param("city"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

// Forecast handles GET /weather/forecast/:city.
//
// @Summary      Daily forecast for a city
// @Tags         weather
// @Produce      json
// @Param        city  path      string  true  "City name"
// @Success      200   {object}  domain.Forecast
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /weather/forecast/{city} [get]
func (h *WeatherHandler) Forecast(c echo.Context) error {
	f, err := h.service.Forecast(c.Request().Context(), c.Param("city"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// CacheStatus handles GET /weather/cache-status.
//
// @Summary      Weather cache statistics
// @Tags         weather
// @Produce      json
// @Success      200  {object}  domain.CacheStats
// @Router       /weather/cache-status [get]
func (h *WeatherHandler) CacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.CacheStats())
}

// ClearCache handles DELETE /weather/cache.
//
// @Summary      Invalidate the weather cache
// @Tags         weather
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /weather/cache [delete]
func (h *WeatherHandler) ClearCache(c echo.Context) error {
	h.service.ClearCache()
	return c.JSON(http.StatusOK, messageResponse{Message: "Cache invalidated successfully"})
}
