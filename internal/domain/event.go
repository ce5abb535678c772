package domain

// Event is one publish occurrence fanned out to subscribers.
// Immutable once created; Data is an opaque serialized payload.
type Event struct {
	Name string
	Data []byte
}
