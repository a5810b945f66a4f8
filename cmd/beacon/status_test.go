package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/beacon/internal/lifecycle"
	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
)

func TestGatherSnapshot_CountsCompletedFilesExcludingActive(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	spoolDir := filepath.Join(dir, "spool")
	settingsPath := filepath.Join(dir, "analytics.settings")
	now := func() time.Time { return time.Unix(1000, 0) }
	sched := scheduler.NewVirtual()

	coord := lifecycle.NewCoordinator()
	st, err := coord.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, now, true)
	if err != nil {
		t.Fatalf("UpdateSettingsAndTracker: %v", err)
	}
	defer coord.Tracker().Close()

	if err := os.WriteFile(filepath.Join(spoolDir, "completed-1.trk"), []byte{}, 0o600); err != nil {
		t.Fatalf("write completed file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(spoolDir, "not-a-spool-file.txt"), []byte{}, 0o600); err != nil {
		t.Fatalf("write non-spool file: %v", err)
	}

	snap := gatherSnapshot(coord, st, spoolDir)
	if !snap.OptedIn {
		t.Errorf("expected OptedIn to be true")
	}
	if snap.ActiveSpoolFile == "" {
		t.Errorf("expected an active spool file")
	}
	if snap.CompletedFileCount != 1 {
		t.Errorf("CompletedFileCount = %d, want 1 (active file and non-.trk file excluded)", snap.CompletedFileCount)
	}
}

func TestGatherSnapshot_OptedOutHasNoActiveSpoolFile(t *testing.T) {
	settings.ResetInstance()
	defer settings.ResetInstance()

	dir := t.TempDir()
	spoolDir := filepath.Join(dir, "spool")
	settingsPath := filepath.Join(dir, "analytics.settings")
	now := func() time.Time { return time.Unix(1000, 0) }
	sched := scheduler.NewVirtual()

	coord := lifecycle.NewCoordinator()
	st, err := coord.UpdateSettingsAndTracker(logx.Nop{}, sched, settingsPath, spoolDir, now, false)
	if err != nil {
		t.Fatalf("UpdateSettingsAndTracker: %v", err)
	}

	snap := gatherSnapshot(coord, st, spoolDir)
	if snap.OptedIn {
		t.Errorf("expected OptedIn to be false")
	}
	if snap.ActiveSpoolFile != "" {
		t.Errorf("expected no active spool file when opted out, got %q", snap.ActiveSpoolFile)
	}
	if snap.PublisherBackoffRatio != 1 {
		t.Errorf("PublisherBackoffRatio = %v, want 1 for Null publisher", snap.PublisherBackoffRatio)
	}
}
