package server

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/apibillme/biller/internal/domain"
	"github.com/apibillme/biller/internal/store"
	"github.com/apibillme/biller/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	if err := s.checkStore(); err != nil {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "store",
			"error":        err.Error(),
		})
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

// checkStore verifies the durable cell answers reads. A missing record key
// still counts as healthy reachability-wise.
func (s *Server) checkStore() error {
	_, err := s.store.Get(domain.RecordKey)
	var notFound *store.ErrKeyNotFound
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
