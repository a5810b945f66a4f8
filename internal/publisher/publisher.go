// Package publisher implements the background directory scanner that
// uploads completed spool files to a remote collector over HTTPS,
// backing off on failure, plus a no-op variant for the opted-out
// case.
package publisher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/logx"
	"github.com/justapithecus/beacon/internal/metrics"
	"github.com/justapithecus/beacon/internal/scheduler"
	"github.com/justapithecus/beacon/internal/settings"
	"github.com/justapithecus/beacon/internal/spool"
)

// DefaultServerURL is used when NewPublisher is given an empty server
// URL.
const DefaultServerURL = "https://play.google.com/log?format=raw"

// DefaultPublishInterval is used when a host constructs a Publisher
// with a non-positive interval.
const DefaultPublishInterval = 10 * time.Minute

const maxBackoffDelay = 24 * time.Hour

const (
	metaCategory = "META"
	metaKind     = "META_METRICS"
)

// OSInfo is the narrow slice of host/OS classification the base
// request needs. Computing it is a host concern, not this package's.
type OSInfo struct {
	Name         string
	MajorVersion string
	FullVersion  string
}

// ClientInfo is the fixed, per-process portion of every upload.
type ClientInfo struct {
	OSName         string `msgpack:"osName"`
	OSMajorVersion string `msgpack:"osMajorVersion"`
	OSFullVersion  string `msgpack:"osFullVersion"`
	LoggingID      string `msgpack:"loggingId"`
	ClientType     string `msgpack:"clientType"`
}

// LogRequest is the upload unit POSTed to the collector.
type LogRequest struct {
	ClientInfo      ClientInfo     `msgpack:"clientInfo"`
	LogSource       string         `msgpack:"logSource"`
	RequestTimeMs   int64          `msgpack:"requestTimeMs"`
	RequestUptimeMs int64          `msgpack:"requestUptimeMs"`
	LogEvents       []spool.Record `msgpack:"logEvents"`
}

type metaMetricsEvent struct {
	Category              string `msgpack:"category"`
	Kind                  string `msgpack:"kind"`
	BytesSentInLastUpload int64  `msgpack:"bytesSentInLastUpload"`
	FailedConnections     int64  `msgpack:"failedConnections"`
	FailedServerReplies   int64  `msgpack:"failedServerReplies"`
}

// Connection abstracts the transport a Publisher sends a LogRequest
// over, so tests can substitute a stub without a real socket.
type Connection interface {
	Kind() string
	Send(body []byte) (statusCode int, message string, err error)
	Close()
}

// ConnectionFactory opens a Connection to serverURL.
type ConnectionFactory func(serverURL string) (Connection, error)

type httpConnection struct {
	client    *http.Client
	serverURL string
}

func (c *httpConnection) Kind() string { return "http" }

func (c *httpConnection) Send(body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.serverURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-protobuffer")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(msg), nil
}

func (c *httpConnection) Close() {
	c.client.CloseIdleConnections()
}

// DefaultConnectionFactory opens a real HTTP connection.
func DefaultConnectionFactory(serverURL string) (Connection, error) {
	return &httpConnection{
		client:    &http.Client{Timeout: 30 * time.Second},
		serverURL: serverURL,
	}, nil
}

func sendViaConnection(conn Connection, body []byte) (int, string, error) {
	if conn.Kind() != "http" {
		return http.StatusMethodNotAllowed, "connection is not HTTP", nil
	}
	return conn.Send(body)
}

// Publishing is the interface both the active Publisher and the
// no-op Null implementation satisfy, so Lifecycle can swap them.
type Publishing interface {
	SetPublishInterval(d time.Duration)
	SetServerURL(url string)
	SetConnectionFactory(f ConnectionFactory)
	SetLogger(l logx.Logger)
	SetMetrics(m *metrics.Collector)
	Close()
}

// Publisher periodically scans a spool directory and uploads
// completed files, tracking failure counters used both to back off
// and to report a meta-metric on the next successful upload.
type Publisher struct {
	mu       sync.Mutex
	spoolDir string
	settings *settings.Settings
	now      clock.Provider
	logger   logx.Logger
	sched    scheduler.Scheduler

	baseLogRequest LogRequest
	serverURL      string
	publishInterval time.Duration

	publishHandle   scheduler.Handle
	scheduleVersion int64
	startTimeMs     int64

	bytesSentInLastUpload int64
	failedConnections     int64
	failedServerReplies   int64
	backoffRatio          float64

	connFactory ConnectionFactory
	metrics     *metrics.Collector
	closed      bool
}

// NewPublisher builds a Publisher and schedules its first cycle after
// publishInterval (DefaultPublishInterval if non-positive).
func NewPublisher(spoolDir string, st *settings.Settings, sched scheduler.Scheduler, now clock.Provider, logger logx.Logger, osInfo OSInfo, serverURL string, publishInterval time.Duration) *Publisher {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	if publishInterval <= 0 {
		publishInterval = DefaultPublishInterval
	}

	p := &Publisher{
		spoolDir: spoolDir,
		settings: st,
		now:      now,
		logger:   logger,
		sched:    sched,
		baseLogRequest: LogRequest{
			ClientInfo: ClientInfo{
				OSName:         osInfo.Name,
				OSMajorVersion: osInfo.MajorVersion,
				OSFullVersion:  osInfo.FullVersion,
				LoggingID:      st.UserID(),
				ClientType:     "desktop",
			},
			LogSource: "BEACON_DESKTOP_ANALYTICS",
		},
		serverURL:       serverURL,
		publishInterval: publishInterval,
		startTimeMs:     now().UnixMilli(),
		backoffRatio:    1,
		connFactory:     DefaultConnectionFactory,
	}

	p.mu.Lock()
	p.schedulePublishLocked(p.publishInterval)
	p.mu.Unlock()
	return p
}

func (p *Publisher) schedulePublishLocked(delay time.Duration) {
	version := p.scheduleVersion
	p.publishHandle = p.sched.Schedule(func() { p.runCycle(version) }, delay)
}

func (p *Publisher) nextDelayLocked() time.Duration {
	delay := time.Duration(float64(p.publishInterval) * p.backoffRatio)
	if delay > maxBackoffDelay {
		delay = maxBackoffDelay
	}
	return delay
}

func (p *Publisher) runCycle(version int64) {
	p.mu.Lock()
	defer func() {
		if !p.closed && version == p.scheduleVersion {
			p.schedulePublishLocked(p.nextDelayLocked())
		}
		p.mu.Unlock()
	}()
	if p.closed {
		return
	}

	entries, err := os.ReadDir(p.spoolDir)
	if err != nil {
		p.logger.Warn("publisher: failed to scan spool directory", map[string]any{"error": err.Error()})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".trk") {
			continue
		}
		if !p.tryPublishLocked(filepath.Join(p.spoolDir, entry.Name())) {
			break
		}
	}
}

// tryPublishLocked uploads one spool file. It returns false only on a
// hard failure that should abort the rest of the cycle; a benign skip
// (lock contention) or a successful no-op (empty file) both return
// true.
func (p *Publisher) tryPublishLocked(path string) bool {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return true
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		f.Close()
		return true
	}
	defer f.Close()

	records, err := spool.ReadAll(f)
	if err != nil {
		fl.Unlock()
		p.logger.Error("publisher: corrupt spool file", map[string]any{"path": path, "error": err.Error()})
		return true
	}

	if len(records) == 0 {
		fl.Unlock()
		os.Remove(path)
		return true
	}

	meta := p.buildMetaRecordLocked()
	req := p.baseLogRequest
	req.RequestTimeMs = p.now().UnixMilli()
	req.RequestUptimeMs = req.RequestTimeMs - p.startTimeMs
	req.LogEvents = append([]spool.Record{meta}, records...)

	body, err := msgpack.Marshal(&req)
	if err != nil {
		fl.Unlock()
		p.logger.Error("publisher: failed to encode log request", map[string]any{"error": err.Error()})
		return true
	}

	p.metrics.IncPublishAttempts()
	status, message, sendErr := p.send(body)
	if sendErr != nil {
		p.failedConnections++
		p.backoffRatio *= 2
		p.metrics.SetFailureCounters(1, 0)
		p.logger.Warn("publisher: connection failure", map[string]any{"error": sendErr.Error()})
		fl.Unlock()
		return false
	}
	if status < 200 || status >= 300 {
		p.failedServerReplies++
		p.backoffRatio *= 2
		p.metrics.SetFailureCounters(0, 1)
		p.logger.Warn("publisher: non-2xx response", map[string]any{"status": status, "message": message})
		fl.Unlock()
		return false
	}

	p.failedConnections = 0
	p.failedServerReplies = 0
	p.backoffRatio = 1
	p.metrics.IncPublishSuccesses()
	p.metrics.SetBytesSentLastUpload(p.bytesSentInLastUpload)
	fl.Unlock()
	os.Remove(path)
	return true
}

func (p *Publisher) send(body []byte) (int, string, error) {
	conn, err := p.connFactory(p.serverURL)
	if err != nil {
		return 0, "", err
	}
	defer conn.Close()

	status, message, err := sendViaConnection(conn, body)
	if err == nil {
		p.bytesSentInLastUpload = int64(len(body))
	}
	return status, message, err
}

func (p *Publisher) buildMetaRecordLocked() spool.Record {
	event := metaMetricsEvent{
		Category:              metaCategory,
		Kind:                  metaKind,
		BytesSentInLastUpload: p.bytesSentInLastUpload,
		FailedConnections:     p.failedConnections,
		FailedServerReplies:   p.failedServerReplies,
	}
	payload, _ := msgpack.Marshal(&event)
	return spool.Record{EventTimeMs: p.now().UnixMilli(), Payload: payload}
}

// SetPublishInterval updates the interval and immediately reschedules
// the next cycle, cancelling whichever job was pending.
func (p *Publisher) SetPublishInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishInterval = d
	if p.publishHandle != nil {
		p.publishHandle.Cancel()
	}
	p.scheduleVersion++
	p.schedulePublishLocked(d)
}

// SetServerURL updates the upload destination.
func (p *Publisher) SetServerURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.serverURL = url
}

// SetConnectionFactory replaces how outbound connections are opened.
func (p *Publisher) SetConnectionFactory(f ConnectionFactory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connFactory = f
}

// SetLogger replaces the logger used for warnings/errors.
func (p *Publisher) SetLogger(l logx.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

// SetMetrics attaches a Collector that upload attempts, successes, and
// failures report to. A nil Collector is safe and simply disables
// reporting.
func (p *Publisher) SetMetrics(m *metrics.Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

// Close cancels any pending publish job. Safe to call repeatedly.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduleVersion++
	if p.publishHandle != nil {
		p.publishHandle.Cancel()
		p.publishHandle = nil
	}
	p.closed = true
}

// Snapshotter is implemented by publishers that can report their
// current failure counters and backoff ratio without mutating any
// state, for host-side status reporting.
type Snapshotter interface {
	Snapshot() (backoffRatio float64, bytesSentLastUpload, failedConnections, failedServerReplies int64)
}

// Snapshot returns the current backoff ratio and counters.
func (p *Publisher) Snapshot() (float64, int64, int64, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoffRatio, p.bytesSentInLastUpload, p.failedConnections, p.failedServerReplies
}

// Null performs no scanning, no scheduling, and no network activity.
type Null struct{}

func (Null) SetPublishInterval(time.Duration)       {}
func (Null) SetServerURL(string)                    {}
func (Null) SetConnectionFactory(ConnectionFactory) {}
func (Null) SetLogger(logx.Logger)                  {}
func (Null) SetMetrics(*metrics.Collector)          {}
func (Null) Close()                                 {}
func (Null) Snapshot() (float64, int64, int64, int64) {
	return 1, 0, 0, 0
}

var (
	_ Publishing  = (*Publisher)(nil)
	_ Publishing  = Null{}
	_ Snapshotter = (*Publisher)(nil)
	_ Snapshotter = Null{}
)
