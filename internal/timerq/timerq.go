// Package timerq provides a single goroutine that owns all one-shot deadlines
// as a (deadline, handle) priority queue, instead of one goroutine per wait.
// Cancelled handles simply never fire.
package timerq

import (
	"container/heap"
	"sync"
	"time"
)

type entry struct {
	at     time.Time
	handle string
	fn     func()
	index  int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue schedules callbacks by handle. Scheduling an existing handle replaces
// it; Cancel removes it. Callbacks run on the queue's goroutine, so they must
// not block for long.
type Queue struct {
	mu      sync.Mutex
	heap    entryHeap
	byName  map[string]*entry
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

func New() *Queue {
	q := &Queue{
		byName: make(map[string]*entry),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Schedule arms fn to run at the given time under the handle.
func (q *Queue) Schedule(handle string, at time.Time, fn func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if old, ok := q.byName[handle]; ok {
		heap.Remove(&q.heap, old.index)
	}
	e := &entry{at: at, handle: handle, fn: fn}
	heap.Push(&q.heap, e)
	q.byName[handle] = e
	q.mu.Unlock()
	q.kick()
}

// Cancel disarms a handle. Unknown handles are a no-op.
func (q *Queue) Cancel(handle string) {
	q.mu.Lock()
	if e, ok := q.byName[handle]; ok {
		heap.Remove(&q.heap, e.index)
		delete(q.byName, handle)
	}
	q.mu.Unlock()
	q.kick()
}

// Stop shuts the queue down; pending handles never fire.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	close(q.done)
}

// Pending returns the number of armed handles.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byName)
}

func (q *Queue) kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		q.mu.Lock()
		var wait time.Duration
		if len(q.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(q.heap[0].at)
		}

		var fire *entry
		if wait <= 0 {
			fire = heap.Pop(&q.heap).(*entry)
			delete(q.byName, fire.handle)
		}
		q.mu.Unlock()

		if fire != nil {
			fire.fn()
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-q.wake:
		case <-q.done:
			return
		}
	}
}
