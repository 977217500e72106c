// Package event defines the Atlas event vocabulary.
//
// Events are the atomic, immutable units of truth. Every other piece of
// state in the system is a projection of the ordered event stream and can
// be rebuilt from it. An event, once appended to the ledger, never changes
// and is never removed.
//
// The package provides:
//   - the Envelope wire type (one JSON object per ledger line)
//   - the closed, versioned set of event types
//   - typed payload structs and factory functions for every kind this
//     repository emits
//   - deterministic (canonical) JSON marshaling used for snapshots and
//     golden-file comparison
package event
