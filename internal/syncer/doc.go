// Package syncer implements the offline-first synchronization engine that
// reconciles locally staged scouting edits with the remote store.
//
// Overview
//
// A sync attempt drains staged local writes to the remote gateway, then
// performs a full remote fetch and returns the reconciled dataset:
//
//	Staging Store (device)                Remote Store
//	     ├── pitData     ── upsert ──►    teams/{n}
//	     └── matchData   ── upsert ──►    teams/{n}/matches/{m}
//	                                           │
//	                      ◄── fetch all ───────┘
//	                          Reconciled Dataset
//
// Each staged slot is cleared only after its remote write is confirmed,
// so a failed or skipped attempt leaves the edit staged for the next
// cycle. A pit drain failure aborts the attempt before the match stage
// and the fetch are tried; a failed pit upload usually indicates a
// systemic remote problem, and partial reconciliation is worse than none.
//
// States
//
// An attempt moves through a fixed sequence:
//
//	Idle -> CheckingConnectivity -> DrainingPitStage -> DrainingMatchStage
//	     -> Fetching -> Reconciled | Failed
//
// with Unreachable as the early exit when the connectivity probe fails.
// The pit stage always precedes the match stage so that, when both edits
// are staged for a new team, the pit upload establishes the canonical
// team document and the match upload's placeholder fallback stays idle.
//
// Concurrency
//
// Sync is single-flight: a second caller while an attempt is in flight
// awaits that attempt's result instead of starting a redundant pass.
// This prevents two concurrent invocations (user action racing the
// background scheduler) from double-draining and double-clearing the
// same staged record. A joiner whose context expires while waiting gets
// a failure result; the in-flight attempt itself is never aborted, so
// staged and remote state cannot diverge mid-write.
//
// Error Handling
//
// All failures are converted to the Result contract at this boundary.
// Collaborators only ever see {Success, Dataset, Message}; no error
// value crosses out of the engine. A fetch failure after a successful
// drain returns failure even though the remote writes committed; the
// staged copies are already cleared and are not re-uploaded.
package syncer
