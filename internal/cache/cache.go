// Package cache provides the in-memory holder of the last reconciled
// dataset shared across presentation collaborators.
//
// The cache is written only from a sync result; reads are unrestricted.
// It is an explicitly constructed instance passed by reference, never a
// process-wide singleton, so tests can build isolated copies.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/scoutforge/scoutsync/internal/schema"
)

// ErrUnknownTeam reports a selection of a team number absent from the
// cached dataset.
var ErrUnknownTeam = errors.New("team not in cached dataset")

// AppCache holds the teams from the last reconciled dataset, the
// last-sync timestamp, and the currently selected team.
//
// The selection is a weak reference by team number. When the dataset is
// refreshed the selection is re-resolved against the new teams: it
// rebinds to the record with the same team number, or is cleared when
// that team no longer exists. Stale record pointers are never handed out.
type AppCache struct {
	mu       sync.RWMutex
	teams    []*schema.TeamRecord
	lastSync time.Time
	selected int // team number; 0 means no selection
}

// New creates an empty cache.
func New() *AppCache {
	return &AppCache{}
}

// SetDataset replaces the cached teams and last-sync time with a
// reconciled dataset and re-resolves the selection.
func (c *AppCache) SetDataset(ds *schema.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teams = ds.Teams
	c.lastSync = ds.SyncedAt

	if c.selected != 0 && c.lookup(c.selected) == nil {
		c.selected = 0
	}
}

// Teams returns the cached team records. The returned slice must be
// treated as read-only.
func (c *AppCache) Teams() []*schema.TeamRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.teams
}

// LastSync returns the timestamp of the dataset currently cached, or the
// zero time if no sync has completed.
func (c *AppCache) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Dataset returns a dataset view of the cached teams, or nil when no
// sync has completed yet.
func (c *AppCache) Dataset() *schema.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastSync.IsZero() && len(c.teams) == 0 {
		return nil
	}
	return &schema.Dataset{Teams: c.teams, SyncedAt: c.lastSync}
}

// Select marks the given team as the current selection.
func (c *AppCache) Select(teamNumber int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lookup(teamNumber) == nil {
		return ErrUnknownTeam
	}
	c.selected = teamNumber
	return nil
}

// Selected returns the currently selected team record, or (nil, false)
// when nothing is selected.
func (c *AppCache) Selected() (*schema.TeamRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.selected == 0 {
		return nil, false
	}
	team := c.lookup(c.selected)
	if team == nil {
		return nil, false
	}
	return team, true
}

// ClearSelection drops the current selection.
func (c *AppCache) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = 0
}

// lookup must be called with the mutex held.
func (c *AppCache) lookup(teamNumber int) *schema.TeamRecord {
	for _, t := range c.teams {
		if t.TeamNumber == teamNumber {
			return t
		}
	}
	return nil
}
