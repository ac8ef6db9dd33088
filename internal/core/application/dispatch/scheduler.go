package dispatch

import (
	"container/heap"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// Scheduler fires a callback when a per-order deadline elapses. The
// coordinator runs one instance per timer purpose (offer expiry, retry
// cooldown, order deadline), each keyed by order id.
//
// A single goroutine sleeps until the earliest pending deadline instead
// of one time.Timer per order. Schedule and Cancel work by sequence
// number: every Schedule stamps its heap item with a value from a global
// counter that is never reused, and records it as the order's armed
// deadline. A popped item whose sequence is not the armed one is
// discarded, so stale items from before a Cancel or reschedule can never
// fire against a later deadline. A deadline that fires concurrently with
// a Cancel is additionally neutralized by the job state machine
// downstream.
type Scheduler struct {
	mu    sync.Mutex
	heap  deadlineHeap
	seq   uint64
	armed map[kernel.UUID]uint64

	onFire func(orderID kernel.UUID)

	wake chan struct{}
	done chan struct{}

	stopOnce sync.Once
	stopped  sync.WaitGroup
}

type deadlineItem struct {
	orderID kernel.UUID
	seq     uint64
	at      time.Time
}

// NewScheduler creates a scheduler and starts its timer goroutine.
// onFire runs on that goroutine's dispatch path in a fresh goroutine per
// deadline, so callbacks may take locks and reschedule freely.
func NewScheduler(onFire func(orderID kernel.UUID)) *Scheduler {
	s := &Scheduler{
		armed:  make(map[kernel.UUID]uint64),
		onFire: onFire,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	s.stopped.Add(1)
	go s.run()
	return s
}

// Schedule arms (or re-arms) the order's deadline.
func (s *Scheduler) Schedule(orderID kernel.UUID, at time.Time) {
	s.mu.Lock()
	s.seq++
	s.armed[orderID] = s.seq
	heap.Push(&s.heap, deadlineItem{orderID: orderID, seq: s.seq, at: at})
	s.mu.Unlock()

	s.poke()
}

// Cancel disarms the order's pending deadline, if any. A deadline already
// being fired may still invoke the callback; callers rely on the job
// state machine to make that a no-op.
func (s *Scheduler) Cancel(orderID kernel.UUID) {
	s.mu.Lock()
	delete(s.armed, orderID)
	s.mu.Unlock()
}

// Stop halts the timer goroutine. Pending deadlines never fire after
// Stop returns; callbacks already started may still be running.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.stopped.Wait()
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer s.stopped.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := s.dispatchDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.done:
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dispatchDue fires every due, still-current deadline and returns how
// long to sleep until the next one.
func (s *Scheduler) dispatchDue() time.Duration {
	const idleWait = time.Hour

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for s.heap.Len() > 0 {
		top := s.heap[0]

		if s.armed[top.orderID] != top.seq {
			heap.Pop(&s.heap)
			continue
		}

		if top.at.After(now) {
			return top.at.Sub(now)
		}

		heap.Pop(&s.heap)
		delete(s.armed, top.orderID)
		go s.onFire(top.orderID)
	}

	return idleWait
}

// deadlineHeap is a min-heap of deadline items ordered by fire time.
type deadlineHeap []deadlineItem

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, k int) bool { return h[i].at.Before(h[k].at) }
func (h deadlineHeap) Swap(i, k int)      { h[i], h[k] = h[k], h[i] }
func (h *deadlineHeap) Push(x any)        { *h = append(*h, x.(deadlineItem)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
