package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/beacon/internal/clock"
	"github.com/justapithecus/beacon/internal/lifecycle"
	"github.com/justapithecus/beacon/internal/paths"
	"github.com/justapithecus/beacon/internal/publisher"
	"github.com/justapithecus/beacon/internal/settings"
	"github.com/justapithecus/beacon/internal/statusui"
	"github.com/justapithecus/beacon/internal/tracker"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show tracker and publisher health",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Usage: "poll and redraw once a second"},
			&cli.BoolFlag{Name: "prom", Usage: "dump raw Prometheus text exposition instead of a summary"},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	logger := newLogger(c)
	spoolDir := paths.SpoolDirectory()
	st := settings.GetInstance(logger, paths.SettingsFile(), clock.System)
	coord := lifecycle.Default()

	if c.Bool("prom") {
		return coord.Metrics().WriteTo(os.Stdout)
	}

	snapshot := func() statusui.Snapshot { return gatherSnapshot(coord, st, spoolDir) }

	if c.Bool("watch") {
		return statusui.Run(snapshot)
	}
	statusui.PrintPlain(os.Stdout, snapshot())
	return nil
}

func gatherSnapshot(coord *lifecycle.Coordinator, st *settings.Settings, spoolDir string) statusui.Snapshot {
	snap := statusui.Snapshot{OptedIn: st.HasOptedIn(), PublisherBackoffRatio: 1}

	if ts, ok := coord.Tracker().(tracker.Snapshotter); ok {
		path, count := ts.Snapshot()
		if path != "" {
			snap.ActiveSpoolFile = filepath.Base(path)
		}
		snap.ActiveRecordCount = count
	}

	if ps, ok := coord.Publisher().(publisher.Snapshotter); ok {
		ratio, bytesSent, failedConn, failedReplies := ps.Snapshot()
		snap.PublisherBackoffRatio = ratio
		snap.BytesSentLastUpload = bytesSent
		snap.FailedConnections = failedConn
		snap.FailedServerReplies = failedReplies
	}

	if entries, err := os.ReadDir(spoolDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".trk") {
				snap.CompletedFileCount++
			}
		}
	}
	if snap.ActiveSpoolFile != "" {
		snap.CompletedFileCount--
	}
	if snap.CompletedFileCount < 0 {
		snap.CompletedFileCount = 0
	}

	return snap
}
