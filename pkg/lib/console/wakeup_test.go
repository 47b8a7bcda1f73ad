package console

import (
	"testing"
	"time"
)

// helper: receive with timeout
func recvWithTimeout[T any](t *testing.T, ch <-chan T, d time.Duration) (T, bool) {
	t.Helper()
	var zero T
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(d):
		return zero, false
	}
}

// helper: assert no receive within duration
func assertNoRecv[T any](t *testing.T, ch <-chan T, d time.Duration) {
	t.Helper()
	if v, ok := recvWithTimeout(t, ch, d); ok {
		t.Fatalf("unexpected receive: %v", v)
	}
}

func TestWakeup_EverySubscriberIsSignalled(t *testing.T) {
	w := NewWakeup()
	defer w.Stop()

	a, err := w.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	b, err := w.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	w.Notify()

	if _, ok := recvWithTimeout[struct{}](t, a, 200*time.Millisecond); !ok {
		t.Fatalf("a was not signalled")
	}
	if _, ok := recvWithTimeout[struct{}](t, b, 200*time.Millisecond); !ok {
		t.Fatalf("b was not signalled")
	}
}

func TestWakeup_SignalsCoalesce(t *testing.T) {
	w := NewWakeup()
	defer w.Stop()

	ch, err := w.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// a follower that is behind must not stall the notifier
	for i := 0; i < 100; i++ {
		w.Notify()
	}

	if _, ok := recvWithTimeout[struct{}](t, ch, 200*time.Millisecond); !ok {
		t.Fatalf("expected one pending signal")
	}
	assertNoRecv[struct{}](t, ch, 20*time.Millisecond)
}

func TestWakeup_Unsubscribe(t *testing.T) {
	w := NewWakeup()
	defer w.Stop()

	ch, err := w.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	w.Unsubscribe(ch)
	w.Notify()

	assertNoRecv[struct{}](t, ch, 20*time.Millisecond)
}

func TestWakeup_StopClosesSubscribers(t *testing.T) {
	w := NewWakeup()

	ch, err := w.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	w.Notify()
	w.Stop()
	w.Stop()

	// the pending signal survives the close
	if _, ok := <-ch; !ok {
		t.Fatalf("pending signal lost on Stop")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("subscriber channel was not closed after Stop")
	}

	if _, err := w.Subscribe(); err == nil {
		t.Fatalf("expected Subscribe to fail after Stop")
	}
}
