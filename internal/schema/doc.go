// Package schema validates event envelopes and payloads on the ingest path.
//
// Validation is two-phase: the envelope is checked first (required fields,
// types, known event_type), then the payload is checked against the schema
// table for that event type. The result is a structured list of per-field
// errors so a caller can report every problem in one pass. Validation is a
// pure function over the decoded JSON object; it never mutates the event
// and has no side effects.
//
// Events built through internal/event factories always pass; this package
// exists for externally produced and legacy ledger lines.
package schema
