package apiv1

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

// StatusToProto encodes a supervisor status snapshot.
func StatusToProto(st lib.Status) (*structpb.Struct, error) {
	fields := map[string]any{
		"state":          st.State.String(),
		"pid":            st.PID,
		"launch_id":      st.LaunchID,
		"generation":     float64(st.Generation),
		"crash_attempts": st.CrashAttempts,
	}
	if !st.StartTime.IsZero() {
		fields["start_time"] = st.StartTime.UTC().Format(time.RFC3339Nano)
	}
	if st.LastExit != nil {
		fields["last_exit"] = map[string]any{
			"code":   st.LastExit.Code,
			"signal": st.LastExit.Signal,
		}
	}
	return structpb.NewStruct(fields)
}

// StatusFromProto is the inverse of StatusToProto. Exit errors are not
// carried over the wire.
func StatusFromProto(s *structpb.Struct) (lib.Status, error) {
	fields := s.GetFields()

	state, ok := lib.ParseLifecycleState(fields["state"].GetStringValue())
	if !ok {
		return lib.Status{}, fmt.Errorf("unknown state %q", fields["state"].GetStringValue())
	}

	st := lib.Status{
		State:         state,
		PID:           int(fields["pid"].GetNumberValue()),
		LaunchID:      fields["launch_id"].GetStringValue(),
		Generation:    uint64(fields["generation"].GetNumberValue()),
		CrashAttempts: int(fields["crash_attempts"].GetNumberValue()),
	}
	if raw := fields["start_time"].GetStringValue(); raw != "" {
		start, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return lib.Status{}, fmt.Errorf("start_time: %w", err)
		}
		st.StartTime = start
	}
	if exit := fields["last_exit"].GetStructValue(); exit != nil {
		st.LastExit = &lib.ExitStatus{
			Code:   int(exit.GetFields()["code"].GetNumberValue()),
			Signal: exit.GetFields()["signal"].GetStringValue(),
		}
	}
	return st, nil
}

// EventToProto encodes one supervisor event. Only the fields of its kind
// are set.
func EventToProto(event lib.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"seq":  float64(event.Seq),
		"time": event.Time.UTC().Format(time.RFC3339Nano),
		"kind": string(event.Kind),
	}
	switch event.Kind {
	case lib.EventStatus:
		fields["state"] = event.State.String()
	case lib.EventConsoleLine:
		fields["text"] = event.Line.Text
		fields["classification"] = string(event.Line.Classification)
		fields["stream"] = string(event.Line.Stream)
	case lib.EventCrashAlert:
		fields["attempts"] = event.Attempts
	}
	return structpb.NewStruct(fields)
}

// EventFromProto is the inverse of EventToProto.
func EventFromProto(s *structpb.Struct) (lib.Event, error) {
	fields := s.GetFields()

	event := lib.Event{
		Seq:  uint64(fields["seq"].GetNumberValue()),
		Kind: lib.EventKind(fields["kind"].GetStringValue()),
	}
	if raw := fields["time"].GetStringValue(); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return lib.Event{}, fmt.Errorf("time: %w", err)
		}
		event.Time = t
	}

	switch event.Kind {
	case lib.EventStatus:
		state, ok := lib.ParseLifecycleState(fields["state"].GetStringValue())
		if !ok {
			return lib.Event{}, fmt.Errorf("unknown state %q", fields["state"].GetStringValue())
		}
		event.State = state
	case lib.EventConsoleLine:
		event.Line = lib.ConsoleLine{
			Text:           fields["text"].GetStringValue(),
			Classification: lib.Classification(fields["classification"].GetStringValue()),
			Stream:         lib.Stream(fields["stream"].GetStringValue()),
		}
	case lib.EventCrashAlert:
		event.Attempts = int(fields["attempts"].GetNumberValue())
	default:
		return lib.Event{}, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	return event, nil
}
