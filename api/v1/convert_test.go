package apiv1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

func TestStatusRoundTrip(t *testing.T) {
	in := lib.Status{
		State:         lib.StateRunning,
		PID:           4242,
		LaunchID:      "0f8c2d8e-5b1c-4f57-9a3e-1b2c3d4e5f60",
		Generation:    7,
		StartTime:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		CrashAttempts: 2,
		LastExit:      &lib.ExitStatus{Code: -1, Signal: "killed"},
	}

	encoded, err := StatusToProto(in)
	require.NoError(t, err)
	out, err := StatusFromProto(encoded)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestEventRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []lib.Event{
		{Seq: 1, Time: now, Kind: lib.EventStatus, State: lib.StateStopping},
		{Seq: 2, Time: now, Kind: lib.EventConsoleLine, Line: lib.ConsoleLine{Text: "Done (1.2s)!", Classification: lib.ClassSuccess, Stream: lib.StreamStdout}},
		{Seq: 3, Time: now, Kind: lib.EventCrashAlert, Attempts: 6},
	}

	for _, in := range events {
		encoded, err := EventToProto(in)
		require.NoError(t, err)
		out, err := EventFromProto(encoded)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEventFromProto_UnknownKind(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"kind": "bogus"})
	require.NoError(t, err)

	_, err = EventFromProto(s)
	assert.Error(t, err)
}
