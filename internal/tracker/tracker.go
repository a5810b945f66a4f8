// Package tracker implements the durable, rotating, file-locked spool
// writer events are logged through, plus a no-op variant for the
// opted-out case.
package tracker

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/errs"
	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/metrics"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
	"github.com/justapithecus/beacon/internal/spool"
)

// Tracker is the interface both the active and no-op implementations
// satisfy. It is a tagged sum — opted-in vs opted-out — not a base
// class; the two implementations share no code.
type Tracker interface {
	Log(event []byte) error
	SetMaxJournalSize(n int)
	SetMaxJournalTime(d time.Duration)
	SetMetrics(m *metrics.Collector)
	Close() error
}

// JournalingTracker owns a single active spool file at a time, guarded
// by mu, and appends length-delimited records to it until a size or
// time rotation swaps in a new one.
type JournalingTracker struct {
	mu       sync.Mutex
	spoolDir string
	sched    scheduler.Scheduler
	settings *settings.Settings
	now      clock.Provider
	logger   logx.Logger
	onFatal  func(error)
	metrics  *metrics.Collector

	activePath   string
	activeFile   *os.File
	activeLock   *flock.Flock
	currentCount int

	maxSize         int
	maxTimeNanos    int64
	timeoutHandle   scheduler.Handle
	scheduleVersion int64
	closed          bool
}

// NewJournalingTracker creates spoolDir if missing and rotates in the
// first active file. Failure to open and lock that first file is
// fatal to construction.
func NewJournalingTracker(spoolDir string, sched scheduler.Scheduler, st *settings.Settings, now clock.Provider, logger logx.Logger) (*JournalingTracker, error) {
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, errs.New(errs.KindIO, "create spool directory", err)
	}

	t := &JournalingTracker{
		spoolDir: spoolDir,
		sched:    sched,
		settings: st,
		now:      now,
		logger:   logger,
	}
	t.onFatal = func(err error) {
		logger.Error("tracker: fatal write failure", map[string]any{
			"error":  err.Error(),
			"userId": st.UserID(),
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.rotateInLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *JournalingTracker) rotateInLocked() error {
	path := filepath.Join(t.spoolDir, uuid.New().String()+".trk")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errs.New(errs.KindIO, "open spool file", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		f.Close()
		return errs.New(errs.KindIO, "lock spool file", err)
	}
	if !locked {
		f.Close()
		return errs.New(errs.KindIO, "spool file not lockable", nil)
	}

	t.activePath = path
	t.activeFile = f
	t.activeLock = fl
	t.currentCount = 0
	return nil
}

// rotateOutLocked releases the active lock and handle. Safe to call
// when none is open.
func (t *JournalingTracker) rotateOutLocked() error {
	if t.activeLock != nil {
		if err := t.activeLock.Unlock(); err != nil {
			return errs.New(errs.KindIO, "unlock spool file", err)
		}
		t.activeLock = nil
	}
	if t.activeFile != nil {
		if err := t.activeFile.Close(); err != nil {
			return errs.New(errs.KindIO, "close spool file", err)
		}
		t.activeFile = nil
	}
	return nil
}

// Log submits event for asynchronous, mutex-guarded appending to the
// active spool file. The only synchronous failure is logging after
// close; write failures surface later via the fatal-error path, not
// through this return value.
func (t *JournalingTracker) Log(event []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errs.New(errs.KindState, "log called after close", nil)
	}

	t.sched.Submit(func() {
		t.doLog(event)
	})
	return nil
}

func (t *JournalingTracker) doLog(event []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	rec := spool.Record{EventTimeMs: t.now().UnixMilli(), Payload: event}
	if _, err := spool.WriteRecord(t.activeFile, rec); err != nil {
		t.onFatal(err)
		return
	}
	if err := t.activeFile.Sync(); err != nil {
		t.onFatal(err)
		return
	}
	t.currentCount++
	t.metrics.IncEventsLogged()

	if t.maxSize > 0 && t.currentCount >= t.maxSize {
		if err := t.rotateOutLocked(); err != nil {
			t.onFatal(err)
			return
		}
		if err := t.rotateInLocked(); err != nil {
			t.onFatal(err)
			return
		}
		t.metrics.IncFilesRotated("size")
		t.resetTimeoutOnRotationLocked()
	}
}

// resetTimeoutOnRotationLocked restarts the idle-timeout countdown
// after a size-triggered rotation, if one is currently scheduled.
func (t *JournalingTracker) resetTimeoutOnRotationLocked() {
	if t.timeoutHandle == nil {
		return
	}
	t.timeoutHandle.Cancel()
	t.scheduleVersion++
	if t.maxTimeNanos > 0 {
		t.scheduleTimeoutLocked()
	} else {
		t.timeoutHandle = nil
	}
}

func (t *JournalingTracker) scheduleTimeoutLocked() {
	version := t.scheduleVersion
	delay := time.Duration(t.maxTimeNanos)
	t.timeoutHandle = t.sched.Schedule(func() { t.onTimeout(version) }, delay)
}

// onTimeout is the self-rescheduling idle-rotation task. It captures
// the scheduleVersion in effect when it was scheduled; if that no
// longer matches the tracker's current version by the time it runs,
// the chain terminates instead of rescheduling — the reconfiguration
// that bumped the version already started (or will start) its own
// chain.
func (t *JournalingTracker) onTimeout(version int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if t.currentCount > 0 {
		if err := t.rotateOutLocked(); err != nil {
			t.onFatal(err)
		}
		if err := t.rotateInLocked(); err != nil {
			t.onFatal(err)
			return
		}
		t.metrics.IncFilesRotated("time")
	}

	if version == t.scheduleVersion {
		delay := time.Duration(t.maxTimeNanos)
		t.timeoutHandle = t.sched.Schedule(func() { t.onTimeout(version) }, delay)
	}
}

// SetMetrics attaches a Collector that Log and rotation events report
// to. A nil Collector is safe and simply disables reporting.
func (t *JournalingTracker) SetMetrics(m *metrics.Collector) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
}

// SetMaxJournalSize sets the record-count rotation threshold. A value
// of 0 disables size-based rotation. Takes effect on the next log
// call; does not trigger an immediate rotation.
func (t *JournalingTracker) SetMaxJournalSize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxSize = n
}

// SetMaxJournalTime sets the idle-rotation timeout in d, canceling any
// prior timeout chain and starting a new one. A value of 0 disables
// time-based rotation.
func (t *JournalingTracker) SetMaxJournalTime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maxTimeNanos = int64(d)
	if t.timeoutHandle != nil {
		t.timeoutHandle.Cancel()
		t.timeoutHandle = nil
	}
	t.scheduleVersion++

	if t.maxTimeNanos > 0 {
		t.scheduleTimeoutLocked()
	}
}

// Close marks the tracker closed, cancels any pending timeout, and
// releases the active file. Idempotent.
func (t *JournalingTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.timeoutHandle != nil {
		t.timeoutHandle.Cancel()
		t.timeoutHandle = nil
	}
	t.scheduleVersion++
	if err := t.rotateOutLocked(); err != nil {
		return err
	}
	t.metrics.IncFilesRotated("close")
	return nil
}

// Snapshotter is implemented by trackers that can report their
// current active file and pending record count without mutating any
// state, for host-side status reporting.
type Snapshotter interface {
	Snapshot() (activePath string, currentCount int)
}

// Snapshot returns the active file path and pending record count.
func (t *JournalingTracker) Snapshot() (string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activePath, t.currentCount
}

// Null accepts and discards every event. Used when the host has not
// opted in.
type Null struct{}

func (Null) Log([]byte) error                { return nil }
func (Null) SetMaxJournalSize(int)           {}
func (Null) SetMaxJournalTime(time.Duration) {}
func (Null) SetMetrics(*metrics.Collector)   {}
func (Null) Close() error                    { return nil }
func (Null) Snapshot() (string, int)         { return "", 0 }

var (
	_ Tracker     = (*JournalingTracker)(nil)
	_ Tracker     = Null{}
	_ Snapshotter = (*JournalingTracker)(nil)
	_ Snapshotter = Null{}
)
