// Package settings persists the single small record a host needs
// across process restarts: the generated user id, the opt-in flag, a
// debug publishing override, and a time-rotating anonymization salt.
// The file is a TOML document guarded by an OS-level exclusive lock so
// concurrent processes never observe a half-written record.
package settings

import (
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/errs"
	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/paths"
)

const saltLen = 24

// saltBlob round-trips the salt through TOML as a decimal big integer
// rather than a byte array or base64 string, matching the on-disk
// "saltValue (big-integer)" field format.
type saltBlob []byte

func (s saltBlob) MarshalText() ([]byte, error) {
	return []byte(new(big.Int).SetBytes(s).Text(10)), nil
}

func (s *saltBlob) UnmarshalText(text []byte) error {
	n, ok := new(big.Int).SetString(strings.TrimSpace(string(text)), 10)
	if !ok {
		return errs.New(errs.KindParse, "salt value is not a valid integer", nil)
	}
	*s = n.Bytes()
	return nil
}

type document struct {
	UserID                 string   `toml:"userId"`
	HasOptedIn             bool     `toml:"hasOptedIn"`
	DebugDisablePublishing bool     `toml:"debugDisablePublishing"`
	SaltValue              saltBlob `toml:"saltValue"`
	SaltSkew               int32    `toml:"saltSkew"`
}

// Settings is the process's view of the persisted record. All mutating
// operations serialize on mu and on the file's OS-level exclusive
// lock.
type Settings struct {
	mu   sync.Mutex
	path string
	now  clock.Provider
	doc  document
}

// CurrentSaltSkew returns the 28-day window index for t, anchored so
// boundaries fall on Mondays (Unix epoch day 0 was a Thursday, hence
// the +3 day offset before dividing).
func CurrentSaltSkew(t time.Time) int32 {
	days := t.UTC().Unix() / 86400
	return int32(floorDiv(days+3, 28))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Load reads the settings file at path. It returns (nil, false, nil)
// if the file does not exist. Existence, locking, and parse failures
// all surface as an *errs.Error.
func Load(path string, now clock.Provider) (*Settings, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.New(errs.KindIO, "stat settings file", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, errs.New(errs.KindIO, "lock settings file", err)
	}
	if !locked {
		return nil, false, errs.New(errs.KindIO, "settings file is locked by another process", nil)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errs.New(errs.KindIO, "read settings file", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, false, errs.New(errs.KindParse, "parse settings file", err)
	}

	return &Settings{path: path, now: now, doc: doc}, true, nil
}

// CreateNew constructs a fresh settings value, seeding userId from a
// legacy uid.txt if one is present alongside path, and persists it
// immediately.
func CreateNew(path string, now clock.Provider) (*Settings, error) {
	userID := legacyUserID(filepath.Dir(path))
	if userID == "" {
		userID = uuid.New().String()
	}

	s := &Settings{
		path: path,
		now:  now,
		doc:  document{UserID: userID},
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

func legacyUserID(settingsHome string) string {
	data, err := os.ReadFile(filepath.Join(settingsHome, filepath.Base(paths.LegacyUIDFile())))
	if err != nil {
		return ""
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	return strings.TrimSpace(line)
}

// Save writes the current record to disk under an exclusive lock,
// truncating any prior content first. A Settings value with no
// backing path (the in-memory fallback) treats Save as a no-op.
func (s *Settings) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Settings) saveLocked() error {
	if s.path == "" {
		return nil
	}

	fl := flock.New(s.path)
	locked, err := fl.TryLock()
	if err != nil {
		return errs.New(errs.KindIO, "lock settings file for save", err)
	}
	if !locked {
		return errs.New(errs.KindIO, "settings file is locked by another process", nil)
	}
	defer fl.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errs.New(errs.KindIO, "create settings directory", err)
	}

	data, err := toml.Marshal(&s.doc)
	if err != nil {
		return errs.New(errs.KindIO, "encode settings", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.New(errs.KindIO, "open settings file for write", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return errs.New(errs.KindIO, "write settings file", err)
	}
	return f.Sync()
}

// UserID returns the persisted user id.
func (s *Settings) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.UserID
}

// HasOptedIn reports the current opt-in flag.
func (s *Settings) HasOptedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HasOptedIn
}

// SetOptedIn updates the opt-in flag and persists it.
func (s *Settings) SetOptedIn(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.HasOptedIn == v {
		return nil
	}
	s.doc.HasOptedIn = v
	return s.saveLocked()
}

// DebugDisablePublishing reports the debug override flag.
func (s *Settings) DebugDisablePublishing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.DebugDisablePublishing
}

// SetDebugDisablePublishing updates the debug override flag and
// persists it.
func (s *Settings) SetDebugDisablePublishing(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.DebugDisablePublishing == v {
		return nil
	}
	s.doc.DebugDisablePublishing = v
	return s.saveLocked()
}

// GetSalt returns the current 24-byte salt, regenerating and
// persisting a fresh one first if the current 28-day window differs
// from the stored skew. A stored blob longer than 24 bytes is
// returned in full, never truncated; a shorter one is right-padded
// with zero bytes.
func (s *Settings) GetSalt() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	skew := CurrentSaltSkew(s.now())
	if skew != s.doc.SaltSkew || len(s.doc.SaltValue) == 0 {
		fresh := make([]byte, saltLen)
		if _, err := rand.Read(fresh); err != nil {
			return nil, errs.New(errs.KindIO, "generate salt", err)
		}
		s.doc.SaltValue = fresh
		s.doc.SaltSkew = skew
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
	}

	return padSalt(s.doc.SaltValue), nil
}

func padSalt(b []byte) []byte {
	if len(b) >= saltLen {
		out := make([]byte, len(b))
		copy(out, b)
		return out
	}
	out := make([]byte, saltLen)
	copy(out, b)
	return out
}

var (
	instanceMu sync.Mutex
	instance   *Settings
)

// GetInstance returns the process-wide cached Settings, trying in
// order: the cached value, Load, CreateNew, and finally an
// in-memory-only fallback with a random, non-persisted user id. Every
// failure along this chain is logged and never raised to the caller.
func GetInstance(logger logx.Logger, path string, now clock.Provider) *Settings {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		return instance
	}

	if loaded, found, err := Load(path, now); err != nil {
		logger.Warn("settings load failed", map[string]any{"error": err.Error()})
	} else if found {
		instance = loaded
		return instance
	}

	created, err := CreateNew(path, now)
	if err == nil {
		instance = created
		return instance
	}
	logger.Error("settings createNew failed, falling back to in-memory settings", map[string]any{"error": err.Error()})

	instance = &Settings{now: now, doc: document{UserID: uuid.New().String()}}
	return instance
}

// ResetInstance clears the process-wide cache so the next GetInstance
// call reloads from disk. Used by tests and by the lifecycle watcher
// reacting to an externally modified settings file.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}
