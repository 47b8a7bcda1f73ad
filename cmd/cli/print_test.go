package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

func TestPrintStatusTable(t *testing.T) {
	var buf bytes.Buffer
	printStatusTable(&buf, lib.Status{
		State:         lib.StateStopped,
		CrashAttempts: 6,
		LastExit:      &lib.ExitStatus{Code: -1, Signal: "killed"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"stopped", "signal killed", "| 6 "} {
		if !strings.Contains(lines[3], want) {
			t.Fatalf("row %q misses %q", lines[3], want)
		}
	}
	if len(lines[0]) != len(lines[3]) {
		t.Fatalf("misaligned table:\n%s", buf.String())
	}
}

func TestRenderEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	line := renderEvent(lib.Event{Time: now, Kind: lib.EventConsoleLine, Line: lib.ConsoleLine{Text: "Done (1.0s)!", Classification: lib.ClassSuccess}})
	if !strings.Contains(line, "Done (1.0s)!") {
		t.Fatalf("unexpected line %q", line)
	}

	state := renderEvent(lib.Event{Time: now, Kind: lib.EventStatus, State: lib.StateRunning})
	if !strings.Contains(state, "[RUNNING]") {
		t.Fatalf("unexpected status line %q", state)
	}

	alert := renderEvent(lib.Event{Time: now, Kind: lib.EventCrashAlert, Attempts: 6})
	if !strings.Contains(alert, "6 times") {
		t.Fatalf("unexpected alert %q", alert)
	}
}
