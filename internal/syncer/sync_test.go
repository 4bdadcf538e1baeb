package syncer

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/scoutforge/scoutsync/internal/cache"
	"github.com/scoutforge/scoutsync/internal/netcheck"
	"github.com/scoutforge/scoutsync/internal/remote"
	"github.com/scoutforge/scoutsync/internal/schema"
	"github.com/scoutforge/scoutsync/internal/staging"
)

// fakeGateway records calls and injects failures.
type fakeGateway struct {
	mu           sync.Mutex
	calls        []string
	teamUpserts  int
	matchUpserts int
	fetches      int

	teamErr  error
	matchErr error
	fetchErr error

	lastTeam  *schema.TeamRecord
	lastMatch *schema.MatchRecord

	fetchStarted chan struct{} // closed on first FetchAll entry, if set
	fetchRelease chan struct{} // FetchAll blocks on this, if set
}

func (f *fakeGateway) TeamExists(ctx context.Context, teamNumber int) (bool, error) {
	return false, nil
}

func (f *fakeGateway) UpsertTeam(ctx context.Context, team *schema.TeamRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.teamErr != nil {
		return f.teamErr
	}
	f.teamUpserts++
	f.calls = append(f.calls, "upsertTeam")
	f.lastTeam = team
	return nil
}

func (f *fakeGateway) UpsertMatch(ctx context.Context, match *schema.MatchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchErr != nil {
		return f.matchErr
	}
	f.matchUpserts++
	f.calls = append(f.calls, "upsertMatch")
	f.lastMatch = match
	return nil
}

func (f *fakeGateway) FetchAll(ctx context.Context) (*schema.Dataset, error) {
	f.mu.Lock()
	started := f.fetchStarted
	release := f.fetchRelease
	f.fetchStarted = nil
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetches++
	f.calls = append(f.calls, "fetchAll")
	return &schema.Dataset{Teams: []*schema.TeamRecord{}}, nil
}

func (f *fakeGateway) DeleteTeam(ctx context.Context, teamNumber int) error {
	return nil
}

func (f *fakeGateway) counts() (teams, matches, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teamUpserts, f.matchUpserts, f.fetches
}

// flipChecker lets a test toggle reachability between syncs.
type flipChecker struct {
	mu        sync.Mutex
	reachable bool
}

func (c *flipChecker) Reachable(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reachable
}

func (c *flipChecker) set(v bool) {
	c.mu.Lock()
	c.reachable = v
	c.mu.Unlock()
}

func testConfig() *Config {
	return &Config{
		RemoteTimeout: 5 * time.Second,
		Logger:        log.New(os.Stderr, "[test] ", 0),
	}
}

func setupStore(t *testing.T) *staging.Store {
	t.Helper()
	store, err := staging.Open(filepath.Join(t.TempDir(), "staging.db"))
	if err != nil {
		t.Fatalf("failed to open staging store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func stagePit(t *testing.T, store *staging.Store, teamNumber int, name string) {
	t.Helper()
	team := &schema.TeamRecord{TeamNumber: teamNumber, TeamName: name, UpdatedAt: time.Now()}
	if err := store.StagePit(context.Background(), team); err != nil {
		t.Fatalf("StagePit failed: %v", err)
	}
}

func stageMatch(t *testing.T, store *staging.Store, teamNumber, matchNumber int) {
	t.Helper()
	match := &schema.MatchRecord{TeamNumber: teamNumber, MatchNumber: matchNumber, RecordedAt: time.Now()}
	if err := store.StageMatch(context.Background(), match); err != nil {
		t.Fatalf("StageMatch failed: %v", err)
	}
}

func TestSyncOfflineIsNoOp(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")
	stageMatch(t, store, 3990, 4)

	orch := New(store, gw, netcheck.Static(false), testConfig())
	res := orch.Sync(ctx)

	if res.Success {
		t.Error("offline sync should fail")
	}
	if res.Message != MsgOffline {
		t.Errorf("message = %q, want %q", res.Message, MsgOffline)
	}

	teams, matches, fetches := gw.counts()
	if teams != 0 || matches != 0 || fetches != 0 {
		t.Errorf("offline sync touched the gateway: %d/%d/%d", teams, matches, fetches)
	}

	// Staged contents are untouched.
	pit, err := store.StagedPit(ctx)
	if err != nil || pit == nil || pit.TeamNumber != 3990 {
		t.Errorf("staged pit record changed: (%+v, %v)", pit, err)
	}
	match, err := store.StagedMatch(ctx)
	if err != nil || match == nil || match.MatchNumber != 4 {
		t.Errorf("staged match record changed: (%+v, %v)", match, err)
	}
}

func TestSyncDrainsPitBeforeMatch(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")
	stageMatch(t, store, 3990, 4)

	orch := New(store, gw, netcheck.Static(true), testConfig())
	res := orch.Sync(ctx)

	if !res.Success {
		t.Fatalf("sync failed: %s", res.Message)
	}
	if res.Message != MsgSynced {
		t.Errorf("message = %q, want %q", res.Message, MsgSynced)
	}

	want := []string{"upsertTeam", "upsertMatch", "fetchAll"}
	if len(gw.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", gw.calls, want)
	}
	for i := range want {
		if gw.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", gw.calls, want)
		}
	}

	if pit, _ := store.StagedPit(ctx); pit != nil {
		t.Error("pit record should be cleared after confirmed drain")
	}
	if match, _ := store.StagedMatch(ctx); match != nil {
		t.Error("match record should be cleared after confirmed drain")
	}
}

func TestSyncIdempotentDrain(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")

	orch := New(store, gw, netcheck.Static(true), testConfig())

	first := orch.Sync(ctx)
	if !first.Success {
		t.Fatalf("first sync failed: %s", first.Message)
	}
	second := orch.Sync(ctx)
	if !second.Success {
		t.Fatalf("second sync failed: %s", second.Message)
	}

	teams, matches, _ := gw.counts()
	if teams != 1 || matches != 0 {
		t.Errorf("second sync performed upserts: teams=%d matches=%d", teams, matches)
	}
	if first.Dataset.Fingerprint() != second.Dataset.Fingerprint() {
		t.Error("consecutive syncs with no new edits should reconcile identically")
	}
}

func TestSyncLatestStagedWins(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{}
	ctx := context.Background()

	stagePit(t, store, 3990, "First")
	stagePit(t, store, 3990, "Second")

	orch := New(store, gw, netcheck.Static(true), testConfig())
	if res := orch.Sync(ctx); !res.Success {
		t.Fatalf("sync failed: %s", res.Message)
	}

	teams, _, _ := gw.counts()
	if teams != 1 {
		t.Fatalf("expected exactly one team upsert, got %d", teams)
	}
	if gw.lastTeam.TeamName != "Second" {
		t.Errorf("uploaded %q, want the latest staged record", gw.lastTeam.TeamName)
	}
}

func TestSyncFailsFastOnPitFailure(t *testing.T) {
	store := setupStore(t)
	upstreamErr := errors.New("remote rejected: malformed write")
	gw := &fakeGateway{teamErr: upstreamErr}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")
	stageMatch(t, store, 3990, 4)

	orch := New(store, gw, netcheck.Static(true), testConfig())
	res := orch.Sync(ctx)

	if res.Success {
		t.Fatal("sync should fail when the pit drain fails")
	}
	if res.Message != upstreamErr.Error() {
		t.Errorf("message = %q, want the remote error verbatim", res.Message)
	}

	_, matches, fetches := gw.counts()
	if matches != 0 {
		t.Error("match stage must not be attempted after a pit failure")
	}
	if fetches != 0 {
		t.Error("fetch must not be attempted after a pit failure")
	}

	// Both records stay staged for the next cycle.
	if pit, _ := store.StagedPit(ctx); pit == nil {
		t.Error("failed pit drain must leave the pit record staged")
	}
	if match, _ := store.StagedMatch(ctx); match == nil {
		t.Error("pit failure must leave the match record staged")
	}
}

func TestSyncMatchFailureKeepsMatchStaged(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{matchErr: errors.New("remote unavailable: timeout")}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")
	stageMatch(t, store, 3990, 4)

	orch := New(store, gw, netcheck.Static(true), testConfig())
	res := orch.Sync(ctx)

	if res.Success {
		t.Fatal("sync should fail when the match drain fails")
	}

	// The pit drain committed and cleared; the match stays for retry.
	if pit, _ := store.StagedPit(ctx); pit != nil {
		t.Error("pit record should be cleared after its confirmed drain")
	}
	if match, _ := store.StagedMatch(ctx); match == nil {
		t.Error("failed match drain must leave the match record staged")
	}
}

func TestSyncFetchFailureAfterDrain(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{fetchErr: errors.New("remote unavailable: connection reset")}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")

	orch := New(store, gw, netcheck.Static(true), testConfig())
	res := orch.Sync(ctx)

	if res.Success {
		t.Fatal("sync should fail when the fetch fails")
	}
	if res.Dataset != nil {
		t.Error("failed sync must not carry a dataset")
	}

	// The drain committed remotely; its staged copy is gone and is not
	// re-uploaded next cycle.
	teams, _, _ := gw.counts()
	if teams != 1 {
		t.Fatalf("expected one team upsert before the fetch failure, got %d", teams)
	}
	if pit, _ := store.StagedPit(ctx); pit != nil {
		t.Error("drained pit record should stay cleared despite the fetch failure")
	}
}

func TestSyncSingleFlight(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{
		fetchStarted: make(chan struct{}),
		fetchRelease: make(chan struct{}),
	}
	ctx := context.Background()

	stagePit(t, store, 3990, "Example")

	orch := New(store, gw, netcheck.Static(true), testConfig())

	results := make(chan Result, 2)
	go func() { results <- orch.Sync(ctx) }()

	// Wait until the first attempt is inside the fetch, then race a
	// second caller against it.
	<-gw.fetchStarted
	go func() { results <- orch.Sync(ctx) }()

	// Give the joiner a moment to attach before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(gw.fetchRelease)

	first := <-results
	second := <-results

	if !first.Success || !second.Success {
		t.Fatalf("both callers should succeed: %q / %q", first.Message, second.Message)
	}

	teams, _, fetches := gw.counts()
	if teams != 1 {
		t.Errorf("staged record drained %d times, want 1", teams)
	}
	if fetches != 1 {
		t.Errorf("fetch ran %d times, want 1 (second caller must join the flight)", fetches)
	}
}

func TestSyncJoinerCancellation(t *testing.T) {
	store := setupStore(t)
	gw := &fakeGateway{
		fetchStarted: make(chan struct{}),
		fetchRelease: make(chan struct{}),
	}

	orch := New(store, gw, netcheck.Static(true), testConfig())

	done := make(chan Result, 1)
	go func() { done <- orch.Sync(context.Background()) }()
	<-gw.fetchStarted

	joinCtx, cancel := context.WithCancel(context.Background())
	cancel()
	res := orch.Sync(joinCtx)
	if res.Success || res.Message != MsgCanceled {
		t.Errorf("canceled joiner got %+v, want canceled result", res)
	}

	// The original attempt is unaffected.
	close(gw.fetchRelease)
	if first := <-done; !first.Success {
		t.Errorf("in-flight attempt should complete: %s", first.Message)
	}
}

// setupRealGateway backs a gateway with embedded SQLite so orchestrator
// tests can exercise the real placeholder-team path.
func setupRealGateway(t *testing.T) *remote.SQLGateway {
	t.Helper()

	conn, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("failed to open remote test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	gw := remote.NewGateway(conn, log.New(os.Stderr, "[test] ", 0))
	if err := gw.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize remote schema: %v", err)
	}
	return gw
}

func TestSyncOrphanMatchAutoCreatesTeam(t *testing.T) {
	store := setupStore(t)
	gw := setupRealGateway(t)
	ctx := context.Background()

	stageMatch(t, store, 3990, 7)

	orch := New(store, gw, netcheck.Static(true), testConfig())
	res := orch.Sync(ctx)
	if !res.Success {
		t.Fatalf("sync failed: %s", res.Message)
	}

	team := res.Dataset.Team(3990)
	if team == nil {
		t.Fatal("reconciled dataset missing auto-created team")
	}
	if team.TeamName != "Team 3990" {
		t.Errorf("auto-created team name = %q, want placeholder", team.TeamName)
	}
	if len(team.Matches) != 1 || team.Matches[0].MatchNumber != 7 {
		t.Errorf("expected exactly one match for the team, got %+v", team.Matches)
	}
}

func TestSyncOfflineEditThenReconnect(t *testing.T) {
	store := setupStore(t)
	gw := setupRealGateway(t)
	checker := &flipChecker{}
	ctx := context.Background()

	orch := New(store, gw, checker, testConfig())

	// Staged while offline; sync fails fast.
	stagePit(t, store, 3990, "Example")
	if res := orch.Sync(ctx); res.Success || res.Message != MsgOffline {
		t.Fatalf("offline sync = %+v, want offline failure", res)
	}

	// Connectivity returns.
	checker.set(true)
	res := orch.Sync(ctx)
	if !res.Success {
		t.Fatalf("sync after reconnect failed: %s", res.Message)
	}

	team := res.Dataset.Team(3990)
	if team == nil || team.TeamName != "Example" {
		t.Fatalf("reconciled dataset missing uploaded team: %+v", team)
	}
	if len(team.Matches) != 0 {
		t.Errorf("expected empty matches collection, got %+v", team.Matches)
	}
	if pit, _ := store.StagedPit(ctx); pit != nil {
		t.Error("staged pit record should be cleared after the successful sync")
	}
}

func TestCommitWritesSnapshotAndCache(t *testing.T) {
	store := setupStore(t)
	appCache := cache.New()
	ctx := context.Background()

	ds := &schema.Dataset{
		Teams:    []*schema.TeamRecord{schema.PlaceholderTeam(3990)},
		SyncedAt: time.Now().UTC().Truncate(time.Second),
	}
	res := Result{Success: true, Dataset: ds, Message: MsgSynced}

	if err := Commit(ctx, res, store, appCache); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if got := appCache.Teams(); len(got) != 1 || got[0].TeamNumber != 3990 {
		t.Errorf("cache not refreshed: %+v", got)
	}
	snap, err := store.Snapshot(ctx)
	if err != nil || snap == nil {
		t.Fatalf("snapshot missing after commit: (%v, %v)", snap, err)
	}
	ts, err := store.LastSyncTime(ctx)
	if err != nil || !ts.Equal(ds.SyncedAt) {
		t.Errorf("last sync time = (%v, %v), want %v", ts, err, ds.SyncedAt)
	}
}

func TestCommitIgnoresFailedResult(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	res := Result{Success: false, Message: MsgOffline}
	if err := Commit(ctx, res, store, cache.New()); err != nil {
		t.Fatalf("Commit of failed result errored: %v", err)
	}
	if snap, _ := store.Snapshot(ctx); snap != nil {
		t.Error("failed result must not write a snapshot")
	}
}
