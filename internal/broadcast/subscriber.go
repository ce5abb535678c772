package broadcast

import (
	"github.com/google/uuid"

	"github.com/apibillme/biller/internal/domain"
)

// Subscriber is a live registration with the broadcaster. The broadcaster
// owns the sending side of the event channel; the holder of the handle owns
// the receiving side. The channel is closed exactly once, by the broadcaster,
// on unsubscribe or eviction.
type Subscriber struct {
	id     uuid.UUID
	events chan domain.Event
}

// ID returns the subscriber's unique identity.
func (s *Subscriber) ID() uuid.UUID {
	return s.id
}

// Events returns the subscriber's event stream. The first event is always
// the seed event carrying the record value observed at subscribe time.
// The channel is closed when the subscriber is removed.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.events
}
