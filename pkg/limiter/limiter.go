// Package limiter bounds concurrency for the synchronization driver's
// batch uploads (spec §5: "where parallelism exists it is bounded by an
// explicit cap"). Local is a plain channel semaphore; RatedLocal adds
// golang.org/x/time/rate token-bucket pacing on top of it; an optional
// Redis-backed implementation lets several orchestrator processes share
// one outbound-call-rate budget against the same sync endpoint without
// coordinating step execution itself (§1 non-goal: no distributed
// execution — this only bounds network call rate).
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates entry into a bounded-concurrency section.
type Limiter interface {
	Wait(ctx context.Context) error
	Done()
}

// Local is a channel semaphore holding n concurrent permits; Wait takes
// one and Done releases it.
type Local struct {
	sem chan struct{}
}

// NewLocal returns a Limiter bounding concurrency to n, defaulting to 1
// for determinism per spec §4.5 ("concurrency (default 1 for
// determinism; configurable)").
func NewLocal(n int) *Local {
	if n < 1 {
		n = 1
	}
	return &Local{sem: make(chan struct{}, n)}
}

func (l *Local) Wait(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) Done() {
	<-l.sem
}

// RatedLocal additionally paces acquisitions to at most r per second,
// for components (the upload driver) that want to stay under a remote
// rate budget even when the concurrency cap alone would allow bursts.
type RatedLocal struct {
	*Local
	rl *rate.Limiter
}

func NewRatedLocal(n int, r rate.Limit, burst int) *RatedLocal {
	return &RatedLocal{Local: NewLocal(n), rl: rate.NewLimiter(r, burst)}
}

func (l *RatedLocal) Wait(ctx context.Context) error {
	if err := l.rl.Wait(ctx); err != nil {
		return err
	}
	return l.Local.Wait(ctx)
}
