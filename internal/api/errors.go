package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ImportErrorResponse reports a failed import along with the rows stored
// before the failure
type ImportErrorResponse struct {
	ErrorResponse
	Imported int `json:"imported"`
	Alerts   int `json:"alerts_created"`
}

// statusFor maps the domain error taxonomy onto HTTP
func statusFor(err error) (int, string) {
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable, "storage_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// ErrorHandler renders errors returned by handlers
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   ErrorResponse
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body = ErrorResponse{Error: http.StatusText(he.Code), Code: "http_error"}
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			}
		} else {
			var code string
			status, code = statusFor(err)
			body = ErrorResponse{Error: err.Error(), Code: code}
			if status >= http.StatusInternalServerError {
				log.WithContext(c.Request().Context()).Error("request failed",
					zap.String("path", c.Path()),
					zap.Error(err),
				)
				if status == http.StatusInternalServerError {
					body.Error = "internal server error"
				}
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("failed to write error response", zap.Error(err))
		}
	}
}
