// Package projection derives current state from the ordered event stream.
//
// Each projector is a reducer: a pure function of (state, event) → state,
// dispatched on event type. Unrecognized event types are silent no-ops so
// old projectors tolerate event kinds appended by newer writers.
//
// Two equivalent forms are supported: incremental Apply against live
// state, and RebuildFrom, which starts from empty state and replays the
// whole log. The two produce identical results for the same event
// sequence, so replaying is always safe and projections are never
// authoritative: they can be thrown away at will.
//
// GetState methods return defensive copies; callers cannot reach
// projector-internal state through the returned views.
package projection
