package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/config"
)

const fakeServerScript = `#!/bin/sh
echo "Starting minecraft server version 1.21"
echo "Preparing spawn area: 0%" 1>&2
echo "Done (0.42s)! For help, type \"help\""
while read line; do
  if [ "$line" = "stop" ]; then
    echo "Saving worlds"
    exit 0
  fi
  echo "Unknown command: $line"
done
`

func TestEndToEnd_DownloadSpawnReady(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fakeServerScript))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Server.Kind = config.KindNative
	cfg.Server.ArtifactPath = filepath.Join(t.TempDir(), "bin", "server.sh")
	cfg.Server.DownloadURL = srv.URL + "/server.sh"
	cfg.Server.ExtraArgs = nil
	cfg.Server.ReadyPattern = `Done`
	cfg.Shutdown.TerminateAfter = 2 * time.Second
	cfg.Shutdown.KillAfter = 4 * time.Second

	sup, err := New(cfg, WithHostMemory(func() (uint64, error) { return 8 << 30, nil }))
	require.NoError(t, err)

	require.NoError(t, sup.Start(context.Background()))
	require.Eventually(t, func() bool {
		return sup.Status().State == lib.StateRunning
	}, 5*time.Second, 10*time.Millisecond)

	events := sup.Backlog()
	downloadAt, spawnAt := -1, -1
	downloads := 0
	for i, event := range events {
		if event.Kind != lib.EventConsoleLine {
			continue
		}
		if strings.Contains(event.Line.Text, "Download complete") {
			downloads++
			downloadAt = i
		}
		if spawnAt < 0 && (event.Line.Stream == lib.StreamStdout || strings.Contains(event.Line.Text, "Server process started")) {
			spawnAt = i
		}
	}
	assert.Equal(t, 1, downloads)
	assert.Equal(t, int32(1), hits.Load())
	require.GreaterOrEqual(t, downloadAt, 0)
	assert.Less(t, downloadAt, spawnAt)

	require.NoError(t, sup.SendCommand("list"))
	require.Eventually(t, func() bool {
		return len(linesContaining(sup.Backlog(), "Unknown command: list")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sup.Close(ctx))

	status := sup.Status()
	assert.Equal(t, lib.StateStopped, status.State)
	require.NotNil(t, status.LastExit)
	assert.Equal(t, 0, status.LastExit.Code)
	assert.NotEmpty(t, linesContaining(sup.Backlog(), "Saving worlds"))
}
