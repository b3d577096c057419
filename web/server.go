package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"motorsporthub/auth"
	"motorsporthub/config"
)

// Server is the portal's echo server.
type Server struct {
	Echo   *echo.Echo
	addr   string
	logger zerolog.Logger
}

func NewServer(cfg *config.HTTPConfig, am *auth.AuthManager, h *Handlers, reg *prometheus.Registry, logger zerolog.Logger) (*Server, error) {
	tmpl, err := NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse views: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = tmpl

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	e.GET(auth.PathHome, h.Home, am.Guard(auth.ViewHome))

	// login
	e.GET(auth.PathLogin, am.LoginHandler, am.Guard(auth.ViewLogin))
	e.POST(auth.PathLogin, am.LoginPostHandler, am.Guard(auth.ViewLogin))
	e.GET("/auth/confirm", am.ConfirmHandler)
	e.POST("/logout", am.LogoutHandler)

	d := e.Group(auth.PathAdmin)
	d.Use(am.Guard(auth.ViewAdmin))
	d.GET("", h.Dashboard)
	d.POST("/:collection", h.Create)
	d.POST("/:collection/:id/delete", h.Delete)

	return &Server{Echo: e, addr: cfg.Addr, logger: logger}, nil
}

// Start serves in the background.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	go func() {
		if err := s.Echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.Echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
