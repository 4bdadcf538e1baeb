package syncer

import (
	"context"
	"fmt"

	"github.com/scoutforge/scoutsync/internal/cache"
	"github.com/scoutforge/scoutsync/internal/staging"
)

// Commit applies a successful sync result downstream: the in-memory
// application cache and the durable snapshot used for offline display.
// A failed result is a no-op. appCache may be nil for one-shot CLI use.
//
// Callers own this step rather than the orchestrator so the result
// contract stays the single boundary between the engine and its
// collaborators.
func Commit(ctx context.Context, res Result, store *staging.Store, appCache *cache.AppCache) error {
	if !res.Success || res.Dataset == nil {
		return nil
	}
	if appCache != nil {
		appCache.SetDataset(res.Dataset)
	}
	if err := store.SaveSnapshot(ctx, res.Dataset); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
