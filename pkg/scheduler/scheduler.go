// Package scheduler implements the dependency-ordered, bounded-concurrency
// step executor (component C5). It owns only step sequencing and status
// propagation; building the per-step ExecutionContext (job state, scoped
// logger, instance config) is left to a caller-supplied factory so this
// package stays decoupled from the graph store and event queue.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// ContextFactory builds the ExecutionContext a step's handler runs with.
// Called once per step, immediately before dispatch.
type ContextFactory func(step model.Step) *model.ExecutionContext

type run struct {
	steps       []model.Step
	byID        map[string]model.Step
	status      map[string]model.StepStatus
	pending     int
	running     int
	concurrency int

	mu   sync.Mutex
	cond *sync.Cond
	wg   sync.WaitGroup

	newExecCtx ContextFactory
}

// Run validates the step graph and start states, then executes every
// enabled step as soon as its dependencies reach a terminal state,
// honoring the concurrency cap. Ties among simultaneously-ready steps are
// broken by the order steps appear in the input slice (§3 invariant).
//
// Run itself never returns a step-execution error: individual step
// failures are recorded in the result, not surfaced here. The returned
// error is non-nil only for a structural problem (bad start states, a
// cyclic graph) caught before any step runs.
func Run(ctx context.Context, steps []model.Step, startStates model.StartStates, concurrency int, newExecCtx ContextFactory) (model.SchedulerResult, error) {
	if err := ValidateStartStates(steps, startStates); err != nil {
		return model.SchedulerResult{}, err
	}
	if err := CheckDAG(steps); err != nil {
		return model.SchedulerResult{}, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	r := &run{
		steps:       steps,
		byID:        make(map[string]model.Step, len(steps)),
		status:      make(map[string]model.StepStatus, len(steps)),
		concurrency: concurrency,
		newExecCtx:  newExecCtx,
	}
	r.cond = sync.NewCond(&r.mu)

	for _, s := range steps {
		r.byID[s.ID] = s
		if startStates[s.ID].Disabled {
			r.status[s.ID] = model.StatusDisabled
		} else {
			r.status[s.ID] = model.StatusPending
			r.pending++
		}
	}

	r.mu.Lock()
	for r.pending > 0 {
		if r.dispatchReadyLocked(ctx) == 0 {
			r.cond.Wait()
		}
	}
	r.mu.Unlock()
	r.wg.Wait()

	return r.result(), nil
}

// dispatchReadyLocked scans for steps whose dependencies have all reached a
// terminal state. A step whose dependencies are all SUCCESS is dispatched
// for execution if a concurrency slot is free; a step with any
// non-SUCCESS terminal dependency is marked
// PARTIAL_SUCCESS_DUE_TO_DEPENDENCY_FAILURE without running its handler.
// Returns how many steps changed status (dispatched or marked PARTIAL_*)
// during the scan. Must be called with r.mu held.
func (r *run) dispatchReadyLocked(ctx context.Context) int {
	changed := 0
	for _, s := range r.steps {
		if r.status[s.ID] != model.StatusPending {
			continue
		}
		if !r.depsTerminalLocked(s) {
			continue
		}
		if r.depsFailedLocked(s) {
			r.finishLocked(s.ID, model.StatusPartialSuccessDueToDependencyFailure)
			changed++
			continue
		}
		if r.running >= r.concurrency {
			continue
		}

		r.status[s.ID] = model.StatusRunning
		r.running++
		r.wg.Add(1)
		go r.execute(ctx, s)
		changed++
	}
	return changed
}

func (r *run) depsTerminalLocked(s model.Step) bool {
	for _, dep := range s.DependsOn {
		if !r.status[dep].Terminal() {
			return false
		}
	}
	return true
}

func (r *run) depsFailedLocked(s model.Step) bool {
	for _, dep := range s.DependsOn {
		if r.status[dep] != model.StatusSuccess {
			return true
		}
	}
	return false
}

// finishLocked records a step's terminal status. Must be called with r.mu
// held; wakes the dispatch loop so newly-unblocked dependents get
// reconsidered.
func (r *run) finishLocked(id string, status model.StepStatus) {
	r.status[id] = status
	r.pending--
	r.cond.Broadcast()
}

func (r *run) execute(ctx context.Context, s model.Step) {
	defer r.wg.Done()

	execCtx := r.newExecCtx(s)
	execCtx.Context = ctx
	log := execCtx.Logger
	log.StepStart(s)

	err := r.invoke(execCtx, s)

	r.mu.Lock()
	r.running--
	if err != nil {
		log.StepFailure(s, err)
		r.finishLocked(s.ID, model.StatusFailure)
	} else {
		log.StepSuccess(s)
		r.finishLocked(s.ID, model.StatusSuccess)
	}
	r.mu.Unlock()
}

// invoke runs a step's handler, converting a panic into a StepExecution
// error so one misbehaving handler cannot take down the whole scheduler.
func (r *run) invoke(execCtx *model.ExecutionContext, s model.Step) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ierr.StepExecution(s.ID, fmt.Errorf("panic: %v", rec))
		}
	}()
	if handlerErr := s.Handler(execCtx); handlerErr != nil {
		return ierr.StepExecution(s.ID, handlerErr)
	}
	return nil
}

func (r *run) result() model.SchedulerResult {
	results := make([]model.StepResult, 0, len(r.steps))
	seenTypes := make(map[string]bool)
	var partialTypes []string

	for _, s := range r.steps {
		status := r.status[s.ID]
		sr := model.StepResult{
			ID:        s.ID,
			Name:      s.Name,
			Types:     s.Types,
			Status:    status,
			DependsOn: s.DependsOn,
		}
		if status != model.StatusSuccess {
			sr.PartialTypes = s.Types
			for _, t := range s.Types {
				if !seenTypes[t] {
					seenTypes[t] = true
					partialTypes = append(partialTypes, t)
				}
			}
		}
		results = append(results, sr)
	}

	sort.Strings(partialTypes)
	return model.SchedulerResult{
		IntegrationStepResults: results,
		Metadata: model.ResultMetadata{
			PartialDatasets: model.PartialDatasets{Types: partialTypes},
		},
	}
}
