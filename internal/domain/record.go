package domain

import "fmt"

// RecordKey is the single key under which the live record is persisted.
// The service manages exactly one record; there is no multi-key support.
const RecordKey = "user"

// Payload is the record's JSON shape as stored and broadcast.
type Payload struct {
	User string `json:"user"`
}

// InsertRequest is the body of POST /insert.
type InsertRequest struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Validate checks the request shape before it touches storage.
func (r *InsertRequest) Validate() error {
	if r.Event == "" {
		return fmt.Errorf("event must not be empty")
	}
	return nil
}
