package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/apibillme/biller/internal/domain"
	apperrors "github.com/apibillme/biller/internal/errors"
	"github.com/apibillme/biller/internal/metrics"
	"github.com/apibillme/biller/internal/store"
)

// handleInsert replaces the record via compare-and-swap and fans the new
// value out to all subscribers. The broadcast happens regardless of the CAS
// outcome, matching the service's at-least-one-broadcast-per-request
// contract; a lost race is logged and counted instead of surfaced.
func (s *Server) handleInsert(c echo.Context) error {
	var req domain.InsertRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed JSON body")
	}
	if err := req.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	payload, err := json.Marshal(req.Data)
	if err != nil {
		return apperrors.InternalError("failed to serialize payload", err)
	}

	oldValue, err := s.store.Get(domain.RecordKey)
	if err != nil {
		return apperrors.UnavailableError("failed to read record", err)
	}

	if err := s.store.CompareAndSwap(domain.RecordKey, oldValue, payload); err != nil {
		var casErr *store.ErrCASFailed
		if errors.As(err, &casErr) {
			slog.WarnContext(c.Request().Context(), "Record changed during insert, broadcasting anyway", "key", domain.RecordKey)
			metrics.StoreCASConflicts.Inc()
		} else {
			return apperrors.UnavailableError("failed to persist record", err)
		}
	}

	// best-effort persistence: a failed flush is observable, not fatal
	if err := s.store.Flush(); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to flush record", "error", err)
		metrics.StoreFlushFailures.Inc()
	}

	s.broadcaster.Publish(req.Event, payload)

	return c.JSON(200, req.Data)
}
