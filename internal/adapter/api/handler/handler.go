package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"casepay/internal/adapter/api/middleware"
	"casepay/internal/usecase"
	"casepay/pkg/errors"
)

// callerFrom reads what the auth and role middleware put on the context.
func callerFrom(c echo.Context) (usecase.Caller, error) {
	uid, ok := c.Get(middleware.ContextUID).(string)
	if !ok || uid == "" {
		return usecase.Caller{}, errors.Unauthorized("User not authenticated", nil)
	}
	role, _ := c.Get(middleware.ContextRole).(string)
	return usecase.Caller{UID: uid, Role: role}, nil
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		return 0, errors.BadRequest("Invalid "+name, err)
	}
	return uint(value), nil
}
