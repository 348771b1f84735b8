package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/screens"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/labstack/echo/v4"
)

// maxActionBody caps the JSON parameters of a screen action
const maxActionBody = 64 << 10

// OpenScreenRequest names the destination to open and its route parameters
type OpenScreenRequest struct {
	Destination string          `json:"destination" validate:"required"`
	Params      json.RawMessage `json:"params"`
}

// ScreenResponse describes an open screen
type ScreenResponse struct {
	ID          string                 `json:"id"`
	Destination navigation.Destination `json:"destination"`
	Route       navigation.Route       `json:"route"`
	State       any                    `json:"state"`
}

// HomeResponse is where the renderer should start for the current auth state
type HomeResponse struct {
	AuthState   string                 `json:"auth_state"`
	Destination navigation.Destination `json:"destination"`
}

// ActionResponse is the result of a screen action. Error is set when the action
// took effect but a follow-up write failed.
type ActionResponse struct {
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// ScreenHandler exposes the navigation dispatcher
type ScreenHandler struct {
	dispatcher *navigation.Dispatcher
	log        logger.Logger
}

// NewScreenHandler creates a new ScreenHandler
func NewScreenHandler(dispatcher *navigation.Dispatcher, log logger.Logger) *ScreenHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ScreenHandler{dispatcher: dispatcher, log: log.WithComponent("handlers/screens")}
}

// RegisterScreenRoutes registers screen routes. Actions go through the limiter.
func (h *ScreenHandler) RegisterScreenRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/home", h.Home)
	g.POST("/screens", h.Open)
	g.GET("/screens/:id", h.Get)
	g.DELETE("/screens/:id", h.Close)
	g.GET("/screens/:id/events", h.Events)
	g.POST("/screens/:id/actions/:action", h.Act, limit)
}

// Home returns the start destination for the current auth state
func (h *ScreenHandler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, HomeResponse{
		AuthState:   h.dispatcher.State().String(),
		Destination: h.dispatcher.Home().Destination(),
	})
}

// Open opens the screen for a destination
func (h *ScreenHandler) Open(c echo.Context) error {
	var req OpenScreenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	route, err := navigation.Decode(navigation.Destination(req.Destination), req.Params)
	if err != nil {
		return err
	}
	id, screen, err := h.dispatcher.Open(c.Request().Context(), route)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ScreenResponse{
		ID:          id,
		Destination: route.Destination(),
		Route:       route,
		State:       screen.State(),
	})
}

// Get returns the current state of an open screen
func (h *ScreenHandler) Get(c echo.Context) error {
	id := c.Param("id")
	screen, route, ok := h.dispatcher.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Screen not found")
	}
	return c.JSON(http.StatusOK, ScreenResponse{
		ID:          id,
		Destination: route.Destination(),
		Route:       route,
		State:       screen.State(),
	})
}

// Close closes an open screen and all of its subscriptions
func (h *ScreenHandler) Close(c echo.Context) error {
	h.dispatcher.Close(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// Act runs a named user action on an open screen
func (h *ScreenHandler) Act(c echo.Context) error {
	screen, _, ok := h.dispatcher.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Screen not found")
	}
	actor, ok := screen.(screens.Actor)
	if !ok {
		return apperrors.Validation("This screen has no actions")
	}

	params, err := io.ReadAll(io.LimitReader(c.Request().Body, maxActionBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	action := c.Param("action")
	result, err := actor.Do(c.Request().Context(), action, params)
	if err != nil {
		if !apperrors.IsPartial(err) {
			return err
		}
		h.log.Warn("action partially applied", "action", action, "error", err)
		return c.JSON(http.StatusOK, ActionResponse{Result: result, Error: apperrors.GetMessage(err)})
	}
	return c.JSON(http.StatusOK, ActionResponse{Result: result})
}

// Events streams the screen state as server-sent events until the screen closes or the client leaves
func (h *ScreenHandler) Events(c echo.Context) error {
	screen, _, ok := h.dispatcher.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Screen not found")
	}
	changes, cancel := screen.Changes()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", screen.State()); err != nil {
		return nil
	}
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case _, open := <-changes:
			if !open {
				_ = writeEvent(w, "closed", struct{}{})
				return nil
			}
			if err := writeEvent(w, "state", screen.State()); err != nil {
				h.log.Debug("event stream ended", "screen_id", c.Param("id"), "error", err)
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
