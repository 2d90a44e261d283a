package server

import (
	"context"
	"time"

	"supportdesk/internal/auth"
	"supportdesk/internal/config"
	"supportdesk/internal/feed"
	"supportdesk/internal/handlers"
	"supportdesk/internal/router"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Deps are the components the HTTP surface serves
type Deps struct {
	Router     *router.Router
	Feed       feed.Subscriber
	Auth       *auth.Manager
	Analytics  handlers.SummaryProvider // nil disables the analytics endpoint
	HealthDeps map[string]handlers.Pinger
}

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Deps
	logger zerolog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			event := s.logger.Info()
			if res.Status >= 500 {
				event = s.logger.Error()
			}
			if err != nil {
				event = event.Err(err)
			} else if reqErr, ok := c.Get(handlers.ErrorContextKey).(error); ok {
				event = event.Err(reqErr)
			}

			event.
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.HideBanner = true

	s.setupRoutes()
}

// Echo exposes the configured echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.deps.HealthDeps))

	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))

	// widget
	api.POST("/conversations", handlers.StartConversationHandler(s.deps.Router))
	api.GET("/conversations/:threadId", handlers.ConversationHandler(s.deps.Router))
	api.POST("/conversations/:threadId/messages", handlers.SubmitMessageHandler(s.deps.Router))
	api.GET("/conversations/:threadId/messages", handlers.MessagesHandler(s.deps.Router))
	api.GET("/conversations/:threadId/stream", handlers.StreamHandler(s.deps.Router, s.deps.Feed))

	// operators
	api.POST("/admin/login", handlers.AdminLoginHandler(s.deps.Auth))
	admin := api.Group("/admin", auth.Middleware(s.deps.Auth))
	admin.GET("/conversations", handlers.ListConversationsHandler(s.deps.Router))
	admin.GET("/conversations/:threadId/messages", handlers.AdminMessagesHandler(s.deps.Router))
	admin.POST("/conversations/:threadId/status", handlers.UpdateStatusHandler(s.deps.Router))
	admin.POST("/conversations/:threadId/messages", handlers.OperatorReplyHandler(s.deps.Router))
	admin.GET("/analytics", handlers.AnalyticsHandler(s.deps.Analytics))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown stops the HTTP server, waiting for in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
