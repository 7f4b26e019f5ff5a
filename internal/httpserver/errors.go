package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

func statusOf(err error) int {
	switch {
	// a disallowed transition also matches ErrInvalidStatus
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInactiveParent),
		errors.Is(err, service.ErrInactiveProduct),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrImmutableRecord):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail logs err under "<op>_error" and turns it into an HTTP error. Business
// rule failures keep their message; anything else is reported generically.
func fail(l *slog.Logger, op string, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		l.Error(op+"_error", "status", status, "reason", "internal", "error", err)
		return echo.NewHTTPError(status, "internal error")
	}
	l.Warn(op+"_error", "status", status, "reason", err.Error(), "error", err)
	return echo.NewHTTPError(status, err.Error())
}

func badRequest(l *slog.Logger, op, reason string, err error) error {
	l.Warn(op+"_error", "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

func idParam(c echo.Context, l *slog.Logger, op, name string) (uint, error) {
	id, ok := util.ParseUint(c.Param(name))
	if !ok {
		return 0, badRequest(l, op, name+" must be a positive integer", nil)
	}
	return id, nil
}

func currentUser(c echo.Context, l *slog.Logger, op string) (uint, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		l.Warn(op+"_error", "status", http.StatusUnauthorized, "reason", "no user in context")
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
