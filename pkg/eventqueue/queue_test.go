package eventqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPoster struct {
	mu     sync.Mutex
	posted []string
	delay  time.Duration
}

func (p *recordingPoster) PostEvent(ctx context.Context, name string, payload map[string]any) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posted = append(p.posted, name)
	return nil
}

func (p *recordingPoster) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.posted))
	copy(out, p.posted)
	return out
}

func TestEventsDeliveredInEnqueueOrder(t *testing.T) {
	poster := &recordingPoster{delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New(ctx, poster, nil, 3)
	q.Enqueue("step_start", map[string]any{"step": "a"})
	q.Enqueue("step_end", map[string]any{"step": "a"})
	q.Enqueue("step_start", map[string]any{"step": "b"})

	require.NoError(t, q.OnIdle(context.Background()))
	assert.Equal(t, []string{"step_start", "step_end", "step_start"}, poster.names())
}

func TestOnIdleWaitsForInFlightPost(t *testing.T) {
	poster := &recordingPoster{delay: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New(ctx, poster, nil, 3)
	q.Enqueue("slow", nil)

	start := time.Now()
	require.NoError(t, q.OnIdle(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []string{"slow"}, poster.names())
}

type failingPoster struct {
	attempts int
}

func (p *failingPoster) PostEvent(ctx context.Context, name string, payload map[string]any) error {
	p.attempts++
	return assert.AnError
}

func TestDroppedEventNeverPanicsOrBlocksProducer(t *testing.T) {
	poster := &failingPoster{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New(ctx, poster, nil, 2)
	q.Enqueue("will_fail", nil)

	require.NoError(t, q.OnIdle(context.Background()))
	assert.GreaterOrEqual(t, poster.attempts, 1)
}
