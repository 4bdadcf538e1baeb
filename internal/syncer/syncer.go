package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scoutforge/scoutsync/internal/netcheck"
	"github.com/scoutforge/scoutsync/internal/remote"
	"github.com/scoutforge/scoutsync/internal/staging"
)

// DefaultRemoteTimeout bounds each individual remote call so a hung
// connection cannot stall the background scheduler's cadence.
const DefaultRemoteTimeout = 15 * time.Second

// Config holds configuration for the orchestrator.
type Config struct {
	// RemoteTimeout is the per-call bound on the connectivity probe and
	// every remote read/write. Expiry surfaces as a transient remote
	// failure.
	RemoteTimeout time.Duration

	// Logger for sync activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RemoteTimeout: DefaultRemoteTimeout,
		Logger:        log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Orchestrator implements the Syncer interface against a staging store,
// a remote gateway, and a connectivity checker. All dependencies are
// injected; there are no ambient singletons.
type Orchestrator struct {
	store   *staging.Store
	gateway remote.Gateway
	checker netcheck.Checker
	config  *Config

	stateMu sync.Mutex
	state   State

	flightMu sync.Mutex
	inflight *flight
}

// flight tracks one in-progress sync attempt shared by joining callers.
type flight struct {
	done   chan struct{}
	result Result
}

// New creates an orchestrator.
//
// If config is nil, DefaultConfig() is used.
//
// Example:
//
//	store, err := staging.Open(filepath.Join(dataDir, "staging.db"))
//	if err != nil {
//	    return err
//	}
//	gateway, err := remote.Open(cfg.RemoteURL, nil)
//	if err != nil {
//	    return err
//	}
//	checker := netcheck.NewHTTPChecker(cfg.ProbeURL, 0, nil)
//	orch := syncer.New(store, gateway, checker, nil)
func New(store *staging.Store, gateway remote.Gateway, checker netcheck.Checker, config *Config) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = DefaultRemoteTimeout
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		checker: checker,
		config:  config,
		state:   StateIdle,
	}
}

// State returns where the current attempt is, or StateIdle when no
// attempt is in flight.
func (o *Orchestrator) State() State {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Sync implements Syncer.Sync with single-flight serialization: if an
// attempt is already in flight, the caller waits for its result instead
// of starting a redundant pass.
func (o *Orchestrator) Sync(ctx context.Context) Result {
	o.flightMu.Lock()
	if f := o.inflight; f != nil {
		o.flightMu.Unlock()
		select {
		case <-f.done:
			return f.result
		case <-ctx.Done():
			// Cooperative cancellation: stop reporting to this caller
			// but never abort the in-flight remote writes.
			return Result{Success: false, Message: MsgCanceled}
		}
	}
	f := &flight{done: make(chan struct{})}
	o.inflight = f
	o.flightMu.Unlock()

	f.result = o.run(ctx)

	o.flightMu.Lock()
	o.inflight = nil
	o.flightMu.Unlock()
	close(f.done)

	return f.result
}

// run executes one full attempt: probe, drain pit, drain match, fetch.
func (o *Orchestrator) run(ctx context.Context) Result {
	attempt := uuid.NewString()[:8]
	defer o.transition(StateIdle)

	o.transition(StateCheckingConnectivity)
	probeCtx, cancel := context.WithTimeout(ctx, o.config.RemoteTimeout)
	reachable := o.checker.Reachable(probeCtx)
	cancel()
	if !reachable {
		o.config.Logger.Printf("[%s] Unreachable, staged data left untouched", attempt)
		return Result{Success: false, Message: MsgOffline}
	}

	o.transition(StateDrainingPitStage)
	pit, err := o.store.StagedPit(ctx)
	if err != nil {
		return o.failLocal(attempt, err)
	}
	if pit != nil {
		uctx, cancel := context.WithTimeout(ctx, o.config.RemoteTimeout)
		err := o.gateway.UpsertTeam(uctx, pit)
		cancel()
		if err != nil {
			// Fail fast: the match stage and the fetch are never
			// attempted after a pit drain failure.
			return o.failRemote(attempt, "pit drain", err)
		}
		if err := o.store.ClearPit(ctx); err != nil {
			return o.failLocal(attempt, err)
		}
		o.config.Logger.Printf("[%s] Drained pit record for team %d", attempt, pit.TeamNumber)
	}

	o.transition(StateDrainingMatchStage)
	match, err := o.store.StagedMatch(ctx)
	if err != nil {
		return o.failLocal(attempt, err)
	}
	if match != nil {
		uctx, cancel := context.WithTimeout(ctx, o.config.RemoteTimeout)
		err := o.gateway.UpsertMatch(uctx, match)
		cancel()
		if err != nil {
			return o.failRemote(attempt, "match drain", err)
		}
		if err := o.store.ClearMatch(ctx); err != nil {
			return o.failLocal(attempt, err)
		}
		o.config.Logger.Printf("[%s] Drained match %d for team %d",
			attempt, match.MatchNumber, match.TeamNumber)
	}

	o.transition(StateFetching)
	fctx, cancel := context.WithTimeout(ctx, o.config.RemoteTimeout)
	dataset, err := o.gateway.FetchAll(fctx)
	cancel()
	if err != nil {
		// Drains already committed remotely stay committed; their
		// staged copies are gone. The snapshot stays stale until the
		// next successful sync.
		return o.failRemote(attempt, "fetch", err)
	}
	dataset.SyncedAt = time.Now().UTC()

	o.config.Logger.Printf("[%s] Reconciled %d teams, %d matches",
		attempt, len(dataset.Teams), dataset.MatchCount())
	return Result{Success: true, Dataset: dataset, Message: MsgSynced}
}

// failRemote surfaces a remote failure verbatim; staged data is not
// cleared, so the next sync cycle retries it.
func (o *Orchestrator) failRemote(attempt, stage string, err error) Result {
	o.config.Logger.Printf("[%s] %s failed: %v", attempt, stage, err)
	return Result{Success: false, Message: err.Error()}
}

// failLocal surfaces a durable-storage failure distinctly, since it
// threatens the offline durability guarantee.
func (o *Orchestrator) failLocal(attempt string, err error) Result {
	o.config.Logger.Printf("[%s] Local storage failure: %v", attempt, err)
	return Result{Success: false, Message: fmt.Sprintf("Local storage failure: %v", err)}
}
