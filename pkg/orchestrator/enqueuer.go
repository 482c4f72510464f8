package orchestrator

import (
	"sync"

	"github.com/mindburn-labs/integration-core/pkg/logging"
)

type bufferedEvent struct {
	name    string
	payload map[string]any
}

// deferredEnqueuer lets the logger (built in §4.7 step 3) be constructed
// before the event queue exists (built in step 4, once the sync job is
// known): events published in between are buffered and flushed in order
// once attach is called.
type deferredEnqueuer struct {
	mu       sync.Mutex
	target   logging.Enqueuer
	buffered []bufferedEvent
}

func (d *deferredEnqueuer) Enqueue(name string, payload map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target != nil {
		d.target.Enqueue(name, payload)
		return
	}
	d.buffered = append(d.buffered, bufferedEvent{name: name, payload: payload})
}

func (d *deferredEnqueuer) attach(target logging.Enqueuer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = target
	for _, e := range d.buffered {
		target.Enqueue(e.name, e.payload)
	}
	d.buffered = nil
}
