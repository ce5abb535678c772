// Package broadcast implements the publish/subscribe core using the actor pattern.
//
// A single goroutine owns the subscriber registry and processes commands from a
// channel (no mutexes). Each subscriber has a buffered event channel; a full
// buffer on publish marks the subscriber slow and evicts it, so one dead or
// unresponsive client can never stall the write path or other subscribers.
package broadcast
