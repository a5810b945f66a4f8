package statusui

import (
	"fmt"
	"io"
)

// PrintPlain writes snap once, non-interactively. It draws no TUI
// itself, but it shares this package with the bubbletea watch view, so
// importing it still links bubbletea.
func PrintPlain(w io.Writer, snap Snapshot) {
	fmt.Fprintf(w, "opted in:              %v\n", snap.OptedIn)
	fmt.Fprintf(w, "active spool file:     %s\n", snap.ActiveSpoolFile)
	fmt.Fprintf(w, "active record count:   %d\n", snap.ActiveRecordCount)
	fmt.Fprintf(w, "completed files:       %d\n", snap.CompletedFileCount)
	fmt.Fprintf(w, "publisher backoff:     %.1fx\n", snap.PublisherBackoffRatio)
	fmt.Fprintf(w, "bytes sent (last):     %d\n", snap.BytesSentLastUpload)
	fmt.Fprintf(w, "failed connections:    %d\n", snap.FailedConnections)
	fmt.Fprintf(w, "failed server replies: %d\n", snap.FailedServerReplies)
}
