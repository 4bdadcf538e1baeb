package syncer

import (
	"context"

	"github.com/scoutforge/scoutsync/internal/schema"
)

// Result is the sync contract consumed by every collaborator. Message is
// always a human-readable status string, present on success and failure.
// Dataset is set only when Success is true.
type Result struct {
	Success bool
	Dataset *schema.Dataset
	Message string
}

// Status messages surfaced to users.
const (
	// MsgOffline is returned when the connectivity probe reports
	// unreachable. Informational, not an alarm: nothing was mutated.
	MsgOffline = "No internet connection."

	// MsgSynced is returned with every successful reconciliation.
	MsgSynced = "Data synced successfully."

	// MsgCanceled is returned to a caller whose context expired while
	// awaiting an in-flight attempt. The attempt itself keeps running.
	MsgCanceled = "Sync canceled."
)

// Syncer reconciles locally staged edits with the remote store.
//
// Sync drains any staged pit record, then any staged match record, then
// fetches the full remote dataset. It is safe to invoke redundantly
// (draining an empty staging store performs zero remote writes) and safe
// to invoke concurrently (invocations are single-flight serialized).
//
// Sync never returns an error; every failure mode is folded into the
// Result contract.
type Syncer interface {
	Sync(ctx context.Context) Result
}
