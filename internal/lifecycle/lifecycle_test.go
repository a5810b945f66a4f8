package lifecycle

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/publisher"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
	"github.com/justapithecus/beacon/internal/tracker"
)

func fixedNow() time.Time { return time.Unix(1000, 0) }

func TestNewCoordinator_StartsWithNullVariants(t *testing.T) {
	c := NewCoordinator()
	if _, ok := c.Tracker().(tracker.Null); !ok {
		t.Errorf("expected a fresh Coordinator to install tracker.Null")
	}
	if _, ok := c.Publisher().(publisher.Null); !ok {
		t.Errorf("expected a fresh Coordinator to install publisher.Null")
	}
}

func TestUpdateSettingsAndTracker_OptInInstallsJournalingTracker(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	spoolDir := filepath.Join(dir, "spool")
	sched := scheduler.NewVirtual()

	c := NewCoordinator()
	st, err := c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, true)
	if err != nil {
		t.Fatalf("UpdateSettingsAndTracker: %v", err)
	}
	if !st.HasOptedIn() {
		t.Errorf("expected settings to be persisted as opted in")
	}
	if _, ok := c.Tracker().(*tracker.JournalingTracker); !ok {
		t.Errorf("expected opt-in to install a *JournalingTracker, got %T", c.Tracker())
	}
}

func TestUpdateSettingsAndTracker_OptOutInstallsNull(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	spoolDir := filepath.Join(dir, "spool")
	sched := scheduler.NewVirtual()

	c := NewCoordinator()
	if _, err := c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, true); err != nil {
		t.Fatalf("UpdateSettingsAndTracker(true): %v", err)
	}
	if _, err := c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, false); err != nil {
		t.Fatalf("UpdateSettingsAndTracker(false): %v", err)
	}

	if _, ok := c.Tracker().(tracker.Null); !ok {
		t.Errorf("expected opt-out to install tracker.Null, got %T", c.Tracker())
	}
}

func TestUpdateSettingsAndTracker_ClosesPreviousTracker(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	spoolDir := filepath.Join(dir, "spool")
	sched := scheduler.NewVirtual()

	c := NewCoordinator()
	c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, true)
	first := c.Tracker()

	c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, false)

	if err := first.Log([]byte("late")); err == nil {
		t.Errorf("expected the previous tracker to be closed, Log should fail")
	}
}

func TestUpdatePublisher_RespectsDebugDisablePublishing(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	sched := scheduler.NewVirtual()

	st, err := settings.CreateNew(settingsPath, fixedNow)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if err := st.SetOptedIn(true); err != nil {
		t.Fatalf("SetOptedIn: %v", err)
	}
	if err := st.SetDebugDisablePublishing(true); err != nil {
		t.Fatalf("SetDebugDisablePublishing: %v", err)
	}

	c := NewCoordinator()
	c.UpdatePublisher(logx.Nop{}, sched, st, dir, fixedNow, publisher.OSInfo{}, "", time.Minute)

	if _, ok := c.Publisher().(publisher.Null); !ok {
		t.Errorf("expected debugDisablePublishing to force publisher.Null, got %T", c.Publisher())
	}
}

func TestUpdatePublisher_OptedInWithoutDebugOverrideInstallsPublisher(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	sched := scheduler.NewVirtual()

	st, err := settings.CreateNew(settingsPath, fixedNow)
	if err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if err := st.SetOptedIn(true); err != nil {
		t.Fatalf("SetOptedIn: %v", err)
	}

	c := NewCoordinator()
	c.UpdatePublisher(logx.Nop{}, sched, st, dir, fixedNow, publisher.OSInfo{}, "", time.Minute)
	defer c.Publisher().Close()

	if _, ok := c.Publisher().(*publisher.Publisher); !ok {
		t.Errorf("expected an opted-in, non-debug-disabled settings to install *publisher.Publisher, got %T", c.Publisher())
	}
}

func TestWatchSettingsFile_ReloadsOnExternalWrite(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "analytics.settings")
	spoolDir := filepath.Join(dir, "spool")
	sched := scheduler.NewVirtual()

	c := NewCoordinator()
	if _, err := c.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, fixedNow, false); err != nil {
		t.Fatalf("initial UpdateSettingsAndTracker: %v", err)
	}
	if _, ok := c.Tracker().(tracker.Null); !ok {
		t.Fatalf("expected Null tracker before external opt-in")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.WatchSettingsFile(ctx, logx.Nop{}, sched, settingsPath, spoolDir, fixedNow); err != nil {
		t.Fatalf("WatchSettingsFile: %v", err)
	}

	settings.ResetInstance()
	st, found, err := settings.Load(settingsPath, fixedNow)
	if err != nil || !found {
		t.Fatalf("expected the settings file written by the initial call to exist: found=%v err=%v", found, err)
	}
	if err := st.SetOptedIn(true); err != nil {
		t.Fatalf("external SetOptedIn: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Tracker().(*tracker.JournalingTracker); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected watcher to hot-swap in a JournalingTracker after an external opt-in write, got %T", c.Tracker())
}

func TestDefault_ReturnsSameCoordinatorAcrossCalls(t *testing.T) {
	if Default() != Default() {
		t.Errorf("Default() should return the same process-wide Coordinator each call")
	}
}
