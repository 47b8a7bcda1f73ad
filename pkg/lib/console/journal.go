package console

import (
	"context"
	"sync"
	"sync/atomic"
)

// node is an element in the singly linked list. Readers walk it without
// locks through the atomic next pointer.
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Journal is an append-only, bounded backlog of values with replay-then-live
// subscriptions. Every subscriber observes the identical ordered sequence:
// the retained backlog first, then each value appended afterwards.
//
// When the backlog exceeds its limit the oldest entries are released for new
// subscribers only; a subscriber that is already walking the list keeps
// receiving every value it has not seen yet.
type Journal[T any] struct {
	mu      sync.Mutex
	head    atomic.Pointer[node[T]] // sentinel, head.next is the oldest retained value
	tail    *node[T]
	size    int
	limit   int
	stopped bool

	wakeup *Wakeup
}

// RunNewJournal creates an empty journal retaining at most limit values.
// A limit of zero or less retains everything.
func RunNewJournal[T any](limit int) *Journal[T] {
	sentinel := &node[T]{}
	journal := &Journal[T]{
		tail:   sentinel,
		limit:  limit,
		wakeup: NewWakeup(),
	}
	journal.head.Store(sentinel)

	return journal
}

// Append adds value to the end of the journal. It reports false once the
// journal has been stopped.
func (journal *Journal[T]) Append(value T) bool {
	if journal == nil {
		return false
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()

	if journal.stopped {
		return false
	}

	newTail := &node[T]{value: value}
	journal.tail.next.Store(newTail)
	journal.tail = newTail
	journal.size++

	if journal.limit > 0 && journal.size > journal.limit {
		// the oldest retained node becomes the new sentinel
		journal.head.Store(journal.head.Load().next.Load())
		journal.size--
	}

	journal.wakeup.Notify()

	return true
}

// Stop ends all live subscriptions once they have drained the journal.
func (journal *Journal[T]) Stop() {
	if journal == nil {
		return
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()

	if journal.stopped {
		return
	}
	journal.stopped = true
	journal.wakeup.Stop()
}

// Subscribe returns a channel that first replays the retained backlog and
// then follows live appends. The channel is closed when ctx is done or the
// journal is stopped and fully drained.
func (journal *Journal[T]) Subscribe(ctx context.Context, capacity int) <-chan T {
	ch := make(chan T, capacity)

	// Subscribe to wake-ups before taking the starting point so no append
	// can slip between the two.
	notifier, err := journal.wakeup.Subscribe()
	start := journal.head.Load()

	if err != nil {
		go journal.replay(ctx, start, ch)
	} else {
		go journal.follow(ctx, start, notifier, ch)
	}

	return ch
}

func (journal *Journal[T]) follow(ctx context.Context, prev *node[T], notifier chan struct{}, ch chan T) {
	defer journal.wakeup.Unsubscribe(notifier)

	for {
		current := prev.next.Load()
		if current == nil {
			select {
			case <-ctx.Done():
				close(ch)
				return
			case _, ok := <-notifier:
				if !ok {
					// stopped: deliver what is left, then close
					journal.replay(ctx, prev, ch)
					return
				}
			}
			continue
		}
		prev = current

		select {
		case ch <- current.value:
		case <-ctx.Done():
			close(ch)
			return
		}
	}
}

func (journal *Journal[T]) replay(ctx context.Context, prev *node[T], ch chan T) {
	defer close(ch)

	for {
		current := prev.next.Load()
		if current == nil {
			return
		}
		prev = current

		select {
		case ch <- current.value:
		case <-ctx.Done():
			return
		}
	}
}

// ForEach iterates over the retained values in insertion order.
// If iter returns false, iteration stops early.
func (journal *Journal[T]) ForEach(iter func(T) bool) {
	if journal == nil || iter == nil {
		return
	}
	cur := journal.head.Load().next.Load() // skip sentinel
	for cur != nil {
		if !iter(cur.value) {
			return
		}
		cur = cur.next.Load()
	}
}

// Snapshot copies the retained values.
func (journal *Journal[T]) Snapshot() []T {
	var out []T
	journal.ForEach(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Len returns the number of retained values.
func (journal *Journal[T]) Len() int {
	if journal == nil {
		return 0
	}
	journal.mu.Lock()
	defer journal.mu.Unlock()
	return journal.size
}
