// Package server exposes the relay over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"apitester/internal/model"
	"apitester/internal/relay"
)

const (
	// DefaultPort is the relay's listening port
	DefaultPort = 5000

	// LivenessMessage is the body of GET /
	LivenessMessage = "🔥 API Tester Backend is Live"

	shutdownTimeout = 5 * time.Second
)

// Server is the relay HTTP server
type Server struct {
	echo  *echo.Echo
	relay *relay.Relay
	host  string
	port  int
	log   zerolog.Logger
}

// Option is a functional option for Server
type Option func(*Server)

func WithHost(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a server forwarding through r
func New(r *relay.Relay, opts ...Option) *Server {
	s := &Server{
		relay: r,
		port:  DefaultPort,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.log.Info()
			if v.Error != nil {
				event = s.log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/", s.handleLiveness)
	e.POST("/api/test/send", s.handleSend)
	e.GET("/docs", s.handleDocs)
	e.GET("/docs/openapi.json", s.handleOpenAPI)

	s.echo = e
	return s
}

// Handler returns the server's routes as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr is the address the server listens on
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, fmt.Sprint(s.port))
}

// Start listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.Addr()).Msg("relay server starting")
	err := s.echo.Start(s.Addr())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.String(http.StatusOK, LivenessMessage)
}

func (s *Server) handleSend(c echo.Context) error {
	var raw json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body")
	}

	// any JSON value other than an object carries no target
	var req model.RelayRequest
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body")
		}
	}

	result, err := s.relay.Send(c.Request().Context(), &req)
	if errors.Is(err, relay.ErrMissingTarget) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err != nil {
		s.log.Error().Err(err).Str("url", req.URL).Str("method", req.Method).Msg("relay call failed")
		return c.JSON(http.StatusInternalServerError, relay.NewFailure(err))
	}

	return c.JSON(http.StatusOK, result)
}

// handleError renders every error that escapes a handler, including panics
// caught by Recover, as {error: message}
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong!"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = http.StatusNotFound
			message = "Route not found"
		default:
			code = he.Code
			message = fmt.Sprint(he.Message)
		}
	} else {
		s.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": message})
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to write error response")
	}
}
