package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/scoutforge/scoutsync/internal/schema"
	"github.com/scoutforge/scoutsync/internal/staging"
)

// InboxWatcher watches a drop directory for scanned payload files.
// Each *.json file is parsed, staged locally, and removed; malformed
// payloads are rejected and left in place for inspection. It uses
// fsnotify for cross-platform file system event monitoring.
type InboxWatcher struct {
	watcher *fsnotify.Watcher
	store   *staging.Store
	dir     string
	notify  NotifyFunc
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NotifyFunc is called after each successful staging with the record's
// kind and identity, typically to kick the scheduler and feed the
// dashboard.
type NotifyFunc func(kind string, teamNumber, matchNumber int)

// NewInboxWatcher creates an inbox watcher. notify may be nil.
// The watcher must be started with Start() before it processes files.
func NewInboxWatcher(store *staging.Store, dir string, notify NotifyFunc, logger *log.Logger) (*InboxWatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[inbox] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &InboxWatcher{
		watcher: watcher,
		store:   store,
		dir:     dir,
		notify:  notify,
		logger:  logger,
	}, nil
}

// Start begins watching the inbox directory. Any payload files already
// present are processed first so a restart never strands scans.
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to watch inbox directory %s: %w", w.dir, err)
	}
	w.running = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Printf("Watching inbox: %s", w.dir)

	if err := w.drainExisting(runCtx); err != nil {
		w.logger.Printf("Initial inbox scan: %v", err)
	}

	w.wg.Add(1)
	go w.processEvents(runCtx)
	return nil
}

// Stop stops watching and blocks until the event loop has exited.
func (w *InboxWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// drainExisting processes payload files already sitting in the inbox.
func (w *InboxWatcher) drainExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// processEvents is the main event loop converting fsnotify events into
// staging writes.
func (w *InboxWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.ingest(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher error: %v", err)
		}
	}
}

// ingest parses one payload file and stages its record. The file is
// removed once staged; rejected files stay put so the scout can see
// what went wrong.
func (w *InboxWatcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.logger.Printf("Failed to read %s: %v", path, err)
		return
	}

	payload, err := schema.ParseScanned(data)
	if err != nil {
		w.logger.Printf("Rejected %s: %v", filepath.Base(path), err)
		return
	}

	var teamNumber, matchNumber int
	switch payload.Kind {
	case schema.KindPit:
		teamNumber = payload.Team.TeamNumber
		err = w.store.StagePit(ctx, payload.Team)
	case schema.KindMatch:
		teamNumber = payload.Match.TeamNumber
		matchNumber = payload.Match.MatchNumber
		err = w.store.StageMatch(ctx, payload.Match)
	}
	if err != nil {
		w.logger.Printf("Failed to stage %s: %v", filepath.Base(path), err)
		return
	}

	if err := os.Remove(path); err != nil {
		w.logger.Printf("Failed to remove %s after staging: %v", path, err)
	}
	w.logger.Printf("Staged %s record from %s", payload.Kind, filepath.Base(path))

	if w.notify != nil {
		w.notify(payload.Kind, teamNumber, matchNumber)
	}
}
