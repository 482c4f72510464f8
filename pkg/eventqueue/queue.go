// Package eventqueue implements the ordered, drainable event publishing
// queue (spec §4.4, component C4): a single worker posts lifecycle events
// to the remote sync endpoint in FIFO order, one at a time, retrying
// transient failures with bounded exponential backoff before dropping an
// event with a local warning.
package eventqueue

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v5"
)

// Poster posts one event to the remote sync endpoint (POST
// /persister/synchronization/jobs/{id}/events per spec §6).
type Poster interface {
	PostEvent(ctx context.Context, name string, payload map[string]any) error
}

// Item is one enqueued lifecycle event.
type Item struct {
	Name    string
	Payload map[string]any
}

// Queue is the ordered remote event channel. Enqueue is non-blocking;
// a single background worker drains it, posting the next event only
// after the previous post completed (success or terminal failure).
type Queue struct {
	poster     Poster
	log        *slog.Logger
	maxRetries uint

	mu      sync.Mutex
	cond    *sync.Cond
	items   *list.List
	inFlight bool
	closed  bool
	wg      sync.WaitGroup
}

// New starts a Queue's worker goroutine. ctx is passed to every post and
// its retry backoff; the worker itself keeps running until Close.
func New(ctx context.Context, poster Poster, log *slog.Logger, maxRetries uint) *Queue {
	if log == nil {
		log = slog.Default()
	}
	if maxRetries == 0 {
		maxRetries = 5
	}
	q := &Queue{
		poster:     poster,
		log:        log,
		maxRetries: maxRetries,
		items:      list.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	go q.run(ctx)
	return q
}

// Enqueue appends an event; totally ordered per producer, non-blocking.
func (q *Queue) Enqueue(name string, payload map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items.PushBack(Item{Name: name, Payload: payload})
	q.cond.Signal()
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for q.items.Len() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.items.Len() == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		front := q.items.Remove(q.items.Front()).(Item)
		q.inFlight = true
		q.mu.Unlock()

		q.postWithRetry(ctx, front)

		q.mu.Lock()
		q.inFlight = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

func (q *Queue) postWithRetry(ctx context.Context, item Item) {
	operation := func() (struct{}, error) {
		err := q.poster.PostEvent(ctx, item.Name, item.Payload)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(q.maxRetries),
	)
	if err != nil {
		// Failure policy (§4.4): never surface into the producer.
		q.log.Warn("event dropped after exhausting retries",
			"event", item.Name, "error", err)
	}
}

// OnIdle resolves when the queue is empty and no post is in flight.
func (q *Queue) OnIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for (q.items.Len() > 0 || q.inFlight) && !q.closed {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new events and lets the worker drain what remains
// before returning.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}
