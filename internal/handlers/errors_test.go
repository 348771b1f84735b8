package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.Validation("Comment is empty"), http.StatusBadRequest},
		{"unauthenticated", apperrors.Unauthenticated("Sign in to continue"), http.StatusUnauthorized},
		{"forbidden", apperrors.Forbidden("Not yours"), http.StatusForbidden},
		{"rate limited", apperrors.WrapWithCode(apperrors.ErrRateLimited, apperrors.CodeRateLimited, "Slow down"), http.StatusTooManyRequests},
		{"backend", apperrors.Backend(errors.New("unavailable"), "Failed to like post"), http.StatusBadGateway},
		{"partial", apperrors.Partial(errors.New("unavailable"), "Liked, but the notification was not sent"), http.StatusOK},
		{"echo", echo.NewHTTPError(http.StatusNotFound, "Screen not found"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestErrorHandlerRendersMessage(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger.NewNop())
	e.GET("/backend", func(c echo.Context) error {
		return apperrors.Backend(errors.New("connection refused"), "Failed to load posts")
	})
	e.GET("/internal", func(c echo.Context) error {
		return errors.New("nil pointer somewhere")
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/backend", http.StatusBadGateway, "Failed to load posts"},
		{"/internal", http.StatusInternalServerError, "Something went wrong"},
		{"/missing", http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			var res ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, tt.message, res.Error)
		})
	}
}
