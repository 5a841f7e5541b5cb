package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/api/middleware"
	"github.com/FreeRikato/classroom-api/internal/core/domain"
)

// actor returns the identity injected by the Auth middleware. A missing
// identity means the route was registered without Auth.
func actor(c echo.Context) (*domain.User, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return nil, domain.Unauthorized("Not authenticated")
	}
	return u, nil
}

// bind decodes the request into req and runs struct validation.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Validation("invalid payload")
	}
	return c.Validate(req)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation(name + " must be a positive integer")
	}
	return id, nil
}

// queryInt returns nil when the parameter is absent.
func queryInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.Validation(name + " must be an integer")
	}
	return &v, nil
}
