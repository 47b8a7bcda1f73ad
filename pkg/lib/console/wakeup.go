package console

import (
	"errors"
	"sync"
)

var errWakeupStopped = errors.New("wakeup is stopped")

// Wakeup tells followers that new data exists. Signals coalesce: each
// subscriber channel holds at most one pending signal, so Notify never
// blocks and a follower must drain everything new on every wake-up.
type Wakeup struct {
	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
	stopped     bool
}

func NewWakeup() *Wakeup {
	return &Wakeup{subscribers: make(map[chan struct{}]struct{})}
}

func (wakeup *Wakeup) Notify() {
	wakeup.mu.Lock()
	defer wakeup.mu.Unlock()

	for ch := range wakeup.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a follower. It fails once the wakeup is stopped.
func (wakeup *Wakeup) Subscribe() (chan struct{}, error) {
	wakeup.mu.Lock()
	defer wakeup.mu.Unlock()

	if wakeup.stopped {
		return nil, errWakeupStopped
	}
	ch := make(chan struct{}, 1)
	wakeup.subscribers[ch] = struct{}{}
	return ch, nil
}

func (wakeup *Wakeup) Unsubscribe(ch chan struct{}) {
	wakeup.mu.Lock()
	defer wakeup.mu.Unlock()
	delete(wakeup.subscribers, ch)
}

// Stop closes every subscriber channel. A pending signal is still received
// before the close is observed.
func (wakeup *Wakeup) Stop() {
	wakeup.mu.Lock()
	defer wakeup.mu.Unlock()

	if wakeup.stopped {
		return
	}
	wakeup.stopped = true
	for ch := range wakeup.subscribers {
		close(ch)
	}
	clear(wakeup.subscribers)
}
