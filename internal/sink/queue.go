// Package sink provides Event Sink implementations for the capture service.
package sink

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"inputcap/internal/capture"
	"inputcap/internal/input"
	"inputcap/internal/logging"
)

var (
	ErrQueueFull   = errors.New("sink: queue full")
	ErrQueueClosed = errors.New("sink: queue closed")
)

// DropPolicy selects which event a full Queue discards
type DropPolicy string

const (
	DropOldest DropPolicy = "drop_oldest"
	DropNewest DropPolicy = "drop_newest"
)

// ParseDropPolicy validates a policy name. Empty means DropOldest.
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch DropPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DropOldest:
		return DropOldest, nil
	case DropNewest:
		return DropNewest, nil
	}
	return "", fmt.Errorf("invalid drop policy %q (expected drop_oldest|drop_newest)", s)
}

type queued struct {
	name string
	ev   input.InputEvent
}

// Queue decouples the capture loop from a slow sink. Emit never blocks;
// when the buffer is full one event is discarded according to the policy.
// Delivery happens on the queue's own goroutine in arrival order.
type Queue struct {
	next   capture.Sink
	size   int
	policy DropPolicy
	logger logging.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []queued
	closed bool

	closeOnce sync.Once
	done      chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewQueue starts a queue of the given capacity in front of next
func NewQueue(next capture.Sink, size int, policy DropPolicy, logger logging.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	q := &Queue{
		next:   next,
		size:   size,
		policy: policy,
		logger: logger,
		buf:    make([]queued, 0, size),
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Emit enqueues ev. With DropNewest a full queue rejects ev with
// ErrQueueFull; with DropOldest the oldest pending event is discarded.
func (q *Queue) Emit(name string, ev input.InputEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(q.buf) >= q.size {
		q.dropped.Add(1)
		if q.policy == DropNewest {
			return ErrQueueFull
		}
		q.buf[0] = queued{}
		q.buf = q.buf[1:]
	}
	q.buf = append(q.buf, queued{name: name, ev: ev})
	q.cond.Signal()
	return nil
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.buf) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.buf) == 0 {
			q.mu.Unlock()
			return
		}
		item := q.buf[0]
		q.buf[0] = queued{}
		q.buf = q.buf[1:]
		q.mu.Unlock()

		if err := q.next.Emit(item.name, item.ev); err != nil {
			if errors.Is(err, capture.ErrSinkBusy) {
				q.dropped.Add(1)
				continue
			}
			q.failed.Add(1)
			q.logger.Debug("Queued event delivery failed", "event_type", item.ev.Type, "err", err)
			continue
		}
		q.delivered.Add(1)
	}
}

// Close stops accepting events and waits for pending ones to be delivered
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	<-q.done
	return nil
}

// Len returns the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// QueueStats are the queue's counters
type QueueStats struct {
	Pending   int    `json:"pending"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending:   q.Len(),
		Delivered: q.delivered.Load(),
		Dropped:   q.dropped.Load(),
		Failed:    q.failed.Load(),
	}
}
