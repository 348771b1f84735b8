package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/nano-midea/app/internal/middleware"
	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Authenticator drives the process session
type Authenticator interface {
	Current() (platform.Principal, bool)
	Register(ctx context.Context, req models.RegisterRequest) (platform.Principal, error)
	Login(ctx context.Context, req models.LoginRequest) (platform.Principal, error)
	SignInWithGoogle(ctx context.Context, idToken string) (platform.Principal, error)
	Logout(ctx context.Context) error
}

// AuthResponse carries the bearer token the renderer sends with every later request
type AuthResponse struct {
	Token string             `json:"token"`
	User  platform.Principal `json:"user"`
	Error string             `json:"error,omitempty"`
}

// AuthHandler handles sign-up, sign-in and sign-out
type AuthHandler struct {
	session Authenticator
	log     logger.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(session Authenticator, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthHandler{session: session, log: log.WithComponent("handlers/auth")}
}

// RegisterAuthRoutes registers the routes that work while signed out
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/signin", h.SignIn)
	g.POST("/google", h.GoogleSignIn)
}

// RegisterSessionRoutes registers the routes that need the signed-in principal
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.GET("/me", h.Me, requireAuth)
	g.POST("/logout", h.Logout, requireAuth)
}

// Register creates an account with email and password and signs it in
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.session.Register(c.Request().Context(), req)
	if err != nil && !apperrors.IsPartial(err) {
		return err
	}
	if err != nil {
		h.log.Warn("registered without profile", "uid", p.UID, "error", err)
	}
	return c.JSON(http.StatusCreated, AuthResponse{Token: p.IDToken, User: p, Error: apperrors.GetMessage(err)})
}

// SignIn signs in with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.session.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AuthResponse{Token: p.IDToken, User: p})
}

// GoogleSignIn exchanges a Google ID token for a session
func (h *AuthHandler) GoogleSignIn(c echo.Context) error {
	var req models.FederatedLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.session.SignInWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AuthResponse{Token: p.IDToken, User: p})
}

// Me returns the signed-in principal
func (h *AuthHandler) Me(c echo.Context) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(http.StatusOK, p)
}

// Logout ends the session. Every open screen is closed as a consequence.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
