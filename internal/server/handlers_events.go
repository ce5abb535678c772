package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apibillme/biller/internal/domain"
	apperrors "github.com/apibillme/biller/internal/errors"
	"github.com/apibillme/biller/internal/store"
)

// handleEvents serves the long-lived SSE stream. The first event carries the
// record value at connection time, so a new client observes present state
// even if no publish ever occurs. The connection stays open until the client
// disconnects or the server shuts down.
func (s *Server) handleEvents(c echo.Context) error {
	value, err := s.store.Get(domain.RecordKey)
	if err != nil {
		var notFound *store.ErrKeyNotFound
		if errors.As(err, &notFound) {
			// startup init should make this impossible
			return apperrors.UnavailableError("record not initialized", err)
		}
		return apperrors.UnavailableError("failed to read record", err)
	}

	sub, err := s.broadcaster.Subscribe(domain.RecordKey, value)
	if err != nil {
		return apperrors.InternalError("failed to subscribe", err)
	}
	defer s.broadcaster.Unsubscribe(sub)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				// evicted or broadcaster shut down
				return nil
			}
			if err := writeEvent(resp, ev); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// writeEvent emits one event in text/event-stream framing.
func writeEvent(w io.Writer, ev domain.Event) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
	return err
}
