// Package lifecycle installs the correct tracker and publisher
// implementation pair based on opt-in state, and supports swapping
// that pair when the state changes — including an optional watcher
// that reacts to an externally edited settings file.
package lifecycle

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/errs"
	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/metrics"
	"github.com/justapithecus/beacon/internal/publisher"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
	"github.com/justapithecus/beacon/internal/tracker"
)

// Coordinator holds the process-wide active tracker and publisher. A
// freshly constructed Coordinator installs the Null variants so
// Tracker()/Publisher() never return an absent value.
type Coordinator struct {
	mu        sync.Mutex
	tracker   tracker.Tracker
	publisher publisher.Publishing
	metrics   *metrics.Collector
}

// NewCoordinator returns a Coordinator running the opted-out variants.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		tracker:   tracker.Null{},
		publisher: publisher.Null{},
	}
}

var defaultCoordinator = NewCoordinator()

// Default returns the process-wide Coordinator.
func Default() *Coordinator { return defaultCoordinator }

// Tracker returns the currently installed tracker.
func (c *Coordinator) Tracker() tracker.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker
}

// Publisher returns the currently installed publisher.
func (c *Coordinator) Publisher() publisher.Publishing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publisher
}

// Metrics returns the currently attached Collector, or nil if none has
// been set.
func (c *Coordinator) Metrics() *metrics.Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// SetMetrics attaches a Collector that any subsequently installed
// tracker or publisher reports to, and retroactively attaches it to
// whichever pair is currently installed.
func (c *Coordinator) SetMetrics(m *metrics.Collector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
	c.tracker.SetMetrics(m)
	c.publisher.SetMetrics(m)
}

// UpdateSettingsAndTracker loads or creates the settings record,
// persists optIn if it changed, closes the current tracker, and
// installs a JournalingTracker or Null in its place.
func (c *Coordinator) UpdateSettingsAndTracker(logger logx.Logger, sched scheduler.Scheduler, settingsPath, spoolDir string, now clock.Provider, optIn bool) (*settings.Settings, error) {
	st := settings.GetInstance(logger, settingsPath, now)

	if st.HasOptedIn() != optIn {
		if err := st.SetOptedIn(optIn); err != nil {
			logger.Error("lifecycle: failed to persist opt-in change", map[string]any{"error": err.Error()})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.tracker.Close(); err != nil {
		logger.Warn("lifecycle: failed to close previous tracker", map[string]any{"error": err.Error()})
	}

	if optIn {
		jt, err := tracker.NewJournalingTracker(spoolDir, sched, st, now, logger)
		if err != nil {
			logger.Error("lifecycle: failed to install journaling tracker, falling back to null", map[string]any{"error": err.Error()})
			c.tracker = tracker.Null{}
		} else {
			jt.SetMetrics(c.metrics)
			c.tracker = jt
		}
	} else {
		c.tracker = tracker.Null{}
	}

	return st, nil
}

// UpdatePublisher installs a Publisher or Null based on st's opt-in
// and debug-disable state, closing whatever was previously installed.
func (c *Coordinator) UpdatePublisher(logger logx.Logger, sched scheduler.Scheduler, st *settings.Settings, spoolDir string, now clock.Provider, osInfo publisher.OSInfo, serverURL string, publishInterval time.Duration) {
	active := st.HasOptedIn() && !st.DebugDisablePublishing()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.publisher.Close()

	if active {
		np := publisher.NewPublisher(spoolDir, st, sched, now, logger, osInfo, serverURL, publishInterval)
		np.SetMetrics(c.metrics)
		c.publisher = np
	} else {
		c.publisher = publisher.Null{}
	}
}

// WatchSettingsFile watches settingsPath's parent directory and
// re-runs UpdateSettingsAndTracker whenever the file itself changes,
// so a preferences UI running as a separate process can flip opt-in
// without the host needing to call back into this process. This is
// additive: a host that calls UpdateSettingsAndTracker directly on
// its own toggle still works exactly the same with or without a
// watcher running. Cancelling ctx stops the watcher.
func (c *Coordinator) WatchSettingsFile(ctx context.Context, logger logx.Logger, sched scheduler.Scheduler, settingsPath, spoolDir string, now clock.Provider) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.New(errs.KindIO, "create settings file watcher", err)
	}

	dir := filepath.Dir(settingsPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errs.New(errs.KindIO, "watch settings directory", err)
	}

	target := filepath.Base(settingsPath)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				settings.ResetInstance()
				st := settings.GetInstance(logger, settingsPath, now)
				if _, err := c.UpdateSettingsAndTracker(logger, sched, settingsPath, spoolDir, now, st.HasOptedIn()); err != nil {
					logger.Error("lifecycle: hot-swap update failed", map[string]any{"error": err.Error()})
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("lifecycle: settings watcher error", map[string]any{"error": werr.Error()})
			}
		}
	}()

	return nil
}
