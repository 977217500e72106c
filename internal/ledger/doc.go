// Package ledger implements the append-only event log, the sole source of
// truth in Atlas.
//
// The log is partitioned into daily segments: one physical JSONL file per
// UTC append date, named YYYY-MM-DD.jsonl. A segment is only ever appended
// to; once a later day's segment exists it is never touched again, so
// age-based retention can operate without rewriting history.
//
// Append is the only mutation. Every append survives an immediate crash:
// the record is written, flushed, and fsynced before Append returns.
// Sequence numbers are assigned at append time, strictly increasing, and
// define canonical replay order, independent of event timestamps.
//
// Reads are safe concurrently with the single writer because records are
// only added, never changed. A malformed line (torn write from a prior
// crash) is skipped and counted, never fatal to the rest of the read.
package ledger
