package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/api/middleware"
	"github.com/pbnkron/kron/internal/core/domain"
)

// ctxIdentity returns the caller injected by the Auth middleware. Its absence
// means the route was mounted without Auth, so the request is rejected before
// any service call.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
