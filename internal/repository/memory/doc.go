// Package memory provides in-memory repository implementations.
//
// They back the server when no database DSN is configured (local
// development, demos) and double as test fixtures for the API layer.
// All repositories are safe for concurrent use; every read returns a
// copy so callers never share mutable state with the store.
package memory
