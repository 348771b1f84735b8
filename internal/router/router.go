package router

import (
	"github.com/anonto42/nano-midea/app/internal/handlers"
	"github.com/anonto42/nano-midea/app/internal/middleware"
	"github.com/anonto42/nano-midea/app/internal/navigation"
	"github.com/anonto42/nano-midea/app/internal/ratelimit"
	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/anonto42/nano-midea/app/validators"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// Deps is everything the routes are wired to
type Deps struct {
	Dispatcher *navigation.Dispatcher
	Session    handlers.Authenticator
	Verifier   middleware.TokenVerifier
	Uploader   handlers.Uploader
	Limiter    ratelimit.Limiter
	Logger     logger.Logger
}

// New creates an Echo instance with validation, error rendering and global middleware installed
func New(log logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(log)
	SetupMiddleware(e, log)
	return e
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, log logger.Logger) {
	log = log.WithComponent("http")
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	log.Debug("Global middleware configured")
}

// SetupRoutes configures all bridge routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) {
	log := deps.Logger.WithComponent("router")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	limit := middleware.RateLimit(deps.Limiter)
	authHandler := handlers.NewAuthHandler(deps.Session, deps.Logger)

	// --- Routes that work while signed out ---
	authGroup := e.Group("/api/v1/auth")
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Routes guarded by the session token whenever someone is signed in ---
	api := e.Group("/api/v1")
	api.Use(middleware.SessionAuth(deps.Verifier, deps.Session))

	screenHandler := handlers.NewScreenHandler(deps.Dispatcher, deps.Logger)
	screenHandler.RegisterScreenRoutes(api, limit)

	// --- Routes that need the signed-in principal ---
	requireAuth := middleware.RequirePrincipal()
	authHandler.RegisterSessionRoutes(api, requireAuth)

	mediaHandler := handlers.NewMediaHandler(deps.Uploader, deps.Logger)
	mediaHandler.RegisterMediaRoutes(api, requireAuth, limit)

	log.Info("All routes configured")
}
