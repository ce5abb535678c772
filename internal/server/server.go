package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/apibillme/biller/internal/broadcast"
	"github.com/apibillme/biller/internal/config"
	apperrors "github.com/apibillme/biller/internal/errors"
	"github.com/apibillme/biller/internal/websocket"
)

const corsMaxAge = 3600

// recordStore is the durable cell surface the handlers need.
type recordStore interface {
	Get(key string) ([]byte, error)
	CompareAndSwap(key string, oldValue, newValue []byte) error
	Flush() error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	store       recordStore
	broadcaster *broadcast.Broadcaster
	hub         *websocket.Hub
	startTime   time.Time
}

func NewServer(cfg *config.Config, store recordStore, broadcaster *broadcast.Broadcaster, hub *websocket.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(correlationMiddleware)
	e.Use(apperrors.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderAccept, echo.HeaderContentType},
		MaxAge:       corsMaxAge,
	}))

	srv := &Server{
		echo:        e,
		config:      cfg,
		store:       store,
		broadcaster: broadcaster,
		hub:         hub,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start begins serving on the configured port. Blocks until shutdown.
func (s *Server) Start() error {
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
