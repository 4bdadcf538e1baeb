// Package daemon provides the background scheduler that keeps staged
// scouting data flowing to the remote store.
//
// The daemon:
// 1. Runs a sync cycle on a fixed interval
// 2. Watches an inbox directory for scanned payload files and stages them
// 3. Backs off with jitter after consecutive failures
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/scoutforge/scoutsync/internal/cache"
	"github.com/scoutforge/scoutsync/internal/staging"
	"github.com/scoutforge/scoutsync/internal/syncer"
)

// Outcome classifies one scheduled cycle for observers.
type Outcome string

const (
	// OutcomeNewData means the cycle succeeded and the reconciled
	// dataset differs from the previous one.
	OutcomeNewData Outcome = "new-data"
	// OutcomeNoData means the cycle succeeded without dataset changes.
	OutcomeNoData Outcome = "no-data"
	// OutcomeFailed means the cycle failed; staged edits are retained
	// for the next attempt.
	OutcomeFailed Outcome = "failed"
)

// MinInterval is the floor for the scheduled cadence. Sub-minute
// intervals hammer the remote without improving freshness.
const MinInterval = time.Minute

// DefaultBackoffBase seeds the failure backoff sequence.
const DefaultBackoffBase = 30 * time.Second

// Config holds configuration for the daemon.
type Config struct {
	// Interval is the cadence between scheduled sync cycles. Values
	// below MinInterval are raised to it.
	Interval time.Duration

	// BackoffBase is the first failure delay; it doubles per
	// consecutive failure, capped at Interval.
	BackoffBase time.Duration

	// OnCycleStart, if set, is invoked as each cycle begins. Called
	// from the scheduler goroutine.
	OnCycleStart func()

	// OnOutcome, if set, is invoked after every cycle with its
	// classification and the result message. Called from the scheduler
	// goroutine.
	OnOutcome func(Outcome, string)

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:    5 * time.Minute,
		BackoffBase: DefaultBackoffBase,
		Logger:      log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon schedules background sync cycles and commits their results.
type Daemon struct {
	engine   syncer.Syncer
	store    *staging.Store
	appCache *cache.AppCache
	config   *Config

	kick chan struct{}

	mu          sync.Mutex
	failures    int
	lastPrint   uint64
	havePrint   bool
	lastOutcome Outcome
	lastCycleAt time.Time
	cyclesRun   int
	cancelFn    context.CancelFunc
	wg          sync.WaitGroup
	running     bool
}

// New creates a daemon.
//
// The daemon requires:
//   - engine: the sync orchestrator to drive
//   - store: the staging store, used to commit snapshots
//
// appCache may be nil when no interactive consumer exists.
// Use Start() to begin the schedule.
func New(engine syncer.Syncer, store *staging.Store, appCache *cache.AppCache, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval < MinInterval {
		config.Interval = MinInterval
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultBackoffBase
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	return &Daemon{
		engine:   engine,
		store:    store,
		appCache: appCache,
		config:   config,
		kick:     make(chan struct{}, 1),
	}, nil
}

// Start begins the schedule.
//
// The daemon will:
// 1. Run an immediate sync cycle
// 2. Repeat on the configured interval
// 3. After a failure, retry sooner with exponential backoff and jitter
// 4. Run extra cycles when Kick is called (e.g. by the inbox watcher)
//
// This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	runCtx, cancel := context.WithCancel(ctx)
	d.cancelFn = cancel
	d.mu.Unlock()

	d.config.Logger.Printf("Starting scheduler (interval %s)", d.config.Interval)

	d.wg.Add(1)
	go d.schedule(runCtx)

	<-runCtx.Done()
	return d.Stop()
}

// Stop gracefully shuts down the daemon. An in-progress cycle runs to
// completion so confirmed remote writes are never abandoned mid-drain.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel := d.cancelFn
	d.mu.Unlock()

	d.config.Logger.Println("Stopping scheduler")
	cancel()
	d.wg.Wait()
	d.config.Logger.Println("Scheduler stopped")
	return nil
}

// Kick requests an out-of-band cycle, coalescing with any pending
// request. Safe to call from any goroutine.
func (d *Daemon) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// LastOutcome reports the most recent cycle's classification, plus
// false if no cycle has run yet.
func (d *Daemon) LastOutcome() (Outcome, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastOutcome, d.lastCycleAt, d.cyclesRun > 0
}

// schedule is the main loop: immediate cycle, then interval ticks,
// kicks, and failure backoff.
func (d *Daemon) schedule(ctx context.Context) {
	defer d.wg.Done()

	d.runCycle(ctx)

	timer := time.NewTimer(d.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			d.runCycle(ctx)

		case <-d.kick:
			d.config.Logger.Println("Out-of-band cycle requested")
			d.runCycle(ctx)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.nextDelay())
	}
}

// nextDelay picks the wait before the next cycle: the configured
// interval normally, or a jittered exponential backoff while failing.
func (d *Daemon) nextDelay() time.Duration {
	d.mu.Lock()
	failures := d.failures
	d.mu.Unlock()

	if failures == 0 {
		return d.config.Interval
	}

	// Cap the shift so a long outage cannot wrap the delay around.
	shift := failures - 1
	if shift > 10 {
		shift = 10
	}
	delay := d.config.BackoffBase << shift
	if delay > d.config.Interval || delay <= 0 {
		delay = d.config.Interval
	}
	// Up to 25% jitter so recovering devices don't stampede the remote.
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// runCycle executes one sync attempt and classifies it.
func (d *Daemon) runCycle(ctx context.Context) {
	if d.config.OnCycleStart != nil {
		d.config.OnCycleStart()
	}

	// Detached from the shutdown cancel: a cycle that has started runs
	// to completion so a confirmed remote write is never abandoned
	// mid-drain. Each remote call stays bounded by the orchestrator's
	// per-call timeout, and Stop's wg.Wait covers the tail.
	cycleCtx := context.WithoutCancel(ctx)

	res := d.engine.Sync(cycleCtx)

	outcome := OutcomeFailed
	if res.Success {
		if err := syncer.Commit(cycleCtx, res, d.store, d.appCache); err != nil {
			d.config.Logger.Printf("Commit failed: %v", err)
		}
		outcome = d.classify(res)
	}

	d.mu.Lock()
	if outcome == OutcomeFailed {
		d.failures++
	} else {
		d.failures = 0
	}
	d.lastOutcome = outcome
	d.lastCycleAt = time.Now()
	d.cyclesRun++
	failures := d.failures
	d.mu.Unlock()

	switch outcome {
	case OutcomeFailed:
		d.config.Logger.Printf("Cycle failed (%d consecutive): %s", failures, res.Message)
	default:
		d.config.Logger.Printf("Cycle complete: %s", outcome)
	}

	if d.config.OnOutcome != nil {
		d.config.OnOutcome(outcome, res.Message)
	}
}

// classify compares the reconciled dataset against the previous cycle's
// fingerprint to distinguish new-data from no-data.
func (d *Daemon) classify(res syncer.Result) Outcome {
	print := res.Dataset.Fingerprint()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.havePrint && d.lastPrint == print {
		return OutcomeNoData
	}
	d.lastPrint = print
	d.havePrint = true
	return OutcomeNewData
}
