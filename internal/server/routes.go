package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Live document endpoints
	s.echo.GET("/events", s.handleEvents)
	s.echo.POST("/insert", s.handleInsert)

	// Relay channel
	s.echo.GET("/ws/", s.handleWebSocket)
}
