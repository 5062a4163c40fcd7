package pipeline

import (
	"context"
	"sync"
	"time"
)

// WorkItem is either a frame path or a poison pill that retires one worker.
type WorkItem struct {
	Path   string
	Poison bool
}

// Queue is an unbounded FIFO shared by the discovery side and the workers.
// Real items are counted from Push until Done so a drain can be awaited.
// Paths stay in the seen set until Forget, which workers call once a frame
// file is gone from disk, so the set only retains queued and failed frames.
type Queue struct {
	mu      sync.Mutex
	changed chan struct{}
	items   []WorkItem
	seen    map[string]struct{}
	pending int
}

func NewQueue() *Queue {
	return &Queue{
		changed: make(chan struct{}),
		seen:    map[string]struct{}{},
	}
}

// Push appends item. A path already pushed this session is dropped and Push
// returns false.
func (q *Queue) Push(item WorkItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !item.Poison {
		if _, ok := q.seen[item.Path]; ok {
			return false
		}
		q.seen[item.Path] = struct{}{}
		q.pending++
	}

	q.items = append(q.items, item)
	q.broadcast()
	return true
}

// Seen reports whether path was already pushed this session.
func (q *Queue) Seen(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.seen[path]
	return ok
}

// Forget drops path from the seen set.
func (q *Queue) Forget(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.seen, path)
}

// Pop waits up to timeout for an item. It returns false on timeout or when ctx
// is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (WorkItem, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = WorkItem{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-timer.C:
			return WorkItem{}, false
		case <-ctx.Done():
			return WorkItem{}, false
		}
	}
}

// Done marks one popped real item as finished.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending > 0 {
		q.pending--
	}
	q.broadcast()
}

// Len is the number of items waiting to be popped, poison included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending is the number of real items queued or being processed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Wait blocks until every real item pushed so far is Done, or ctx is done.
// progress, when set, is called with the remaining count on every change.
func (q *Queue) Wait(ctx context.Context, progress func(remaining int)) error {
	for {
		q.mu.Lock()
		remaining := q.pending
		wait := q.changed
		q.mu.Unlock()

		if progress != nil {
			progress(remaining)
		}
		if remaining == 0 {
			return nil
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}
