package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/scoutforge/scoutsync/internal/schema"
)

func dataset(teamNumbers ...int) *schema.Dataset {
	ds := &schema.Dataset{SyncedAt: time.Now()}
	for _, n := range teamNumbers {
		ds.Teams = append(ds.Teams, schema.PlaceholderTeam(n))
	}
	return ds
}

func TestSetDatasetAndRead(t *testing.T) {
	c := New()

	if got := c.Teams(); len(got) != 0 {
		t.Fatalf("new cache should be empty, got %d teams", len(got))
	}
	if !c.LastSync().IsZero() {
		t.Fatal("new cache should have zero last-sync time")
	}

	ds := dataset(254, 3990)
	c.SetDataset(ds)

	if got := c.Teams(); len(got) != 2 {
		t.Errorf("Teams() returned %d teams, want 2", len(got))
	}
	if !c.LastSync().Equal(ds.SyncedAt) {
		t.Errorf("LastSync() = %v, want %v", c.LastSync(), ds.SyncedAt)
	}
}

func TestSelectUnknownTeam(t *testing.T) {
	c := New()
	c.SetDataset(dataset(254))

	if err := c.Select(9999); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("Select(9999) = %v, want ErrUnknownTeam", err)
	}
	if _, ok := c.Selected(); ok {
		t.Error("failed select should leave no selection")
	}
}

func TestSelectionRebindsAfterRefresh(t *testing.T) {
	c := New()
	c.SetDataset(dataset(254, 3990))

	if err := c.Select(3990); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Refresh with a new dataset still containing team 3990.
	refreshed := dataset(254, 3990)
	refreshed.Teams[1].TeamName = "Renamed"
	c.SetDataset(refreshed)

	team, ok := c.Selected()
	if !ok {
		t.Fatal("selection should survive a refresh containing the team")
	}
	if team.TeamName != "Renamed" {
		t.Errorf("selection returned stale record: %+v", team)
	}
}

func TestSelectionClearsWhenTeamGone(t *testing.T) {
	c := New()
	c.SetDataset(dataset(254, 3990))

	if err := c.Select(3990); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	c.SetDataset(dataset(254))

	if _, ok := c.Selected(); ok {
		t.Error("selection should clear when the team vanishes from the dataset")
	}
}

func TestClearSelection(t *testing.T) {
	c := New()
	c.SetDataset(dataset(254))

	if err := c.Select(254); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	c.ClearSelection()

	if _, ok := c.Selected(); ok {
		t.Error("ClearSelection should drop the selection")
	}
}
