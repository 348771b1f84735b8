package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusOf maps an app error code onto an HTTP status
func StatusOf(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}

	switch apperrors.GetCode(err) {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeBackend:
		return http.StatusBadGateway
	case apperrors.CodePartial:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// messageOf is the user-visible alert text for err
func messageOf(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
		return http.StatusText(httpErr.Code)
	}
	if StatusOf(err) == http.StatusInternalServerError {
		return "Something went wrong"
	}
	return apperrors.GetMessage(err)
}

// ErrorHandler renders every error returned by a handler or middleware as {"error": message}
func ErrorHandler(log logger.Logger) echo.HTTPErrorHandler {
	log = log.WithComponent("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: messageOf(err)})
		}
		if writeErr != nil {
			log.Warn("failed to write error response", "error", writeErr)
		}
	}
}
