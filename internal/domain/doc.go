// Package domain defines the core domain types shared across packages.
//
// Concept-oriented files (record.go, event.go) with shared types only.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
