// Package statusui reports tracker/publisher health: a snapshot type
// shared by both the non-interactive print path and the interactive
// watch view, so the two never drift apart.
package statusui

// Snapshot is a point-in-time view of the running system, gathered by
// the host from the Lifecycle coordinator and spool directory.
type Snapshot struct {
	OptedIn              bool
	ActiveSpoolFile      string
	ActiveRecordCount    int
	CompletedFileCount   int
	PublisherBackoffRatio float64
	BytesSentLastUpload   int64
	FailedConnections     int64
	FailedServerReplies   int64
}
