// Package orchestrator wires the step scheduler, graph store, event
// queue, and synchronization driver into the single execution sequence
// of component C7: validate, initiate, run, flush, upload, finalize or
// abort.
package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	"github.com/mindburn-labs/integration-core/pkg/eventqueue"
	"github.com/mindburn-labs/integration-core/pkg/graphstore"
	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/logging"
	"github.com/mindburn-labs/integration-core/pkg/model"
	"github.com/mindburn-labs/integration-core/pkg/syncdriver"
	"github.com/mindburn-labs/integration-core/pkg/syncjobstore"
	"github.com/mindburn-labs/integration-core/pkg/validate"
)

// ConfigField describes one entry of instanceConfigFields (§6).
type ConfigField struct {
	Type     string // "string" | "boolean" | "number"
	Mask     bool
	Required bool
}

// Invocation is the per-run definition a caller supplies: the declared
// config shape, the step graph, and the two optional hooks (§6).
type Invocation struct {
	InstanceConfigFields map[string]ConfigField
	IntegrationSteps     []model.Step
	GetStepStartStates   func(ctx context.Context) (model.StartStates, error)
	ValidateInvocation   func(ctx context.Context) error
}

// Dependencies are the ambient collaborators an Orchestrator is built
// with, shared across every Run call.
type Dependencies struct {
	CacheDirRoot         string
	SyncClient           *syncdriver.Client
	SchedulerConcurrency int
	UploadConcurrency    int
	KeyLedger            graphstore.KeyLedger
	Mirror               graphstore.Mirror
	Validator            validate.Validator
	JobStore             *syncjobstore.Store // optional, audit only
	CoreVersion          string              // this module's own semver, for minCoreVersion checks
}

// Result is the execution result summary returned to the caller (§4.7
// step 10).
type Result struct {
	Scheduler model.SchedulerResult
	Job       model.SynchronizationJob
	Finalized bool
	AbortedOn string
}

// Orchestrator runs invocations against one set of Dependencies.
type Orchestrator struct {
	deps Dependencies
}

// New returns an Orchestrator.
func New(deps Dependencies) *Orchestrator {
	if deps.SchedulerConcurrency < 1 {
		deps.SchedulerConcurrency = 1
	}
	if deps.UploadConcurrency < 1 {
		deps.UploadConcurrency = 4
	}
	return &Orchestrator{deps: deps}
}

// Run executes one invocation end to end per §4.7.
func (o *Orchestrator) Run(ctx context.Context, instance model.Instance, inv Invocation) (Result, error) {
	// Step 1: validate instanceConfigFields, including the minCoreVersion
	// compatibility check ahead of everything else.
	if err := o.validateMinCoreVersion(instance); err != nil {
		return Result{}, err
	}
	if err := validateConfigFields(inv.InstanceConfigFields, instance.Config); err != nil {
		return Result{}, err
	}

	// Step 2: validate start states against declared steps; fail fast.
	startStates, err := resolveStartStates(ctx, inv)
	if err != nil {
		return Result{}, err
	}
	if err := preflightStartStates(inv.IntegrationSteps, startStates); err != nil {
		return Result{}, err
	}

	// Step 3: construct the logger and the graph store at a fresh cache
	// directory. The logger's event sink is a deferredEnqueuer since the
	// event queue cannot exist until the sync job does (step 4).
	cacheDir, err := os.MkdirTemp(o.deps.CacheDirRoot, "integration-core-")
	if err != nil {
		return Result{}, ierr.Unexpected(fmt.Errorf("create cache dir: %w", err))
	}
	sink := &deferredEnqueuer{}
	log := logging.New(sink)
	store := graphstore.New(cacheDir, o.deps.KeyLedger, o.deps.Mirror)

	// Step 4: initiate sync job, build the event queue bound to it.
	job, err := o.deps.SyncClient.InitiateJob(ctx)
	if err != nil {
		return Result{}, err
	}
	o.recordTransition(ctx, job, instance.ID, "INITIATED", "")

	queue := eventqueue.New(ctx, syncdriver.NewEventPoster(o.deps.SyncClient, job), nil, 0)
	sink.attach(queue)
	defer queue.Close()

	// Step 5: optional validateInvocation hook.
	if inv.ValidateInvocation != nil {
		if err := inv.ValidateInvocation(ctx); err != nil {
			wrapped := ierr.IntegrationValidation(err)
			log.ValidationFailure(wrapped)
			_ = queue.OnIdle(ctx)
			abortErr := o.deps.SyncClient.Abort(ctx, job, wrapped.Error())
			o.recordTransition(ctx, job, instance.ID, "ABORTED", wrapped.Error())
			if abortErr != nil {
				return Result{Job: job}, abortErr
			}
			return Result{Job: job, AbortedOn: wrapped.Error()}, nil
		}
	}

	// Step 6: run the scheduler; await all steps.
	schedulerResult, err := o.runScheduler(ctx, instance, inv, startStates, log, store)
	if err != nil {
		_ = queue.OnIdle(ctx)
		abortErr := o.deps.SyncClient.Abort(ctx, job, err.Error())
		o.recordTransition(ctx, job, instance.ID, "ABORTED", err.Error())
		if abortErr != nil {
			return Result{Job: job}, abortErr
		}
		return Result{Job: job, AbortedOn: err.Error()}, nil
	}

	// Step 7: flush the graph store.
	if err := store.Flush(ctx); err != nil {
		_ = queue.OnIdle(ctx)
		abortErr := o.deps.SyncClient.Abort(ctx, job, err.Error())
		o.recordTransition(ctx, job, instance.ID, "ABORTED", err.Error())
		if abortErr != nil {
			return Result{Job: job}, abortErr
		}
		return Result{Job: job, AbortedOn: err.Error()}, nil
	}

	// Step 8: drain the event queue, then upload.
	if err := queue.OnIdle(ctx); err != nil {
		return Result{Job: job}, err
	}
	uploader := syncdriver.NewUploader(o.deps.SyncClient, log, o.deps.UploadConcurrency)
	if err := uploader.Run(ctx, store, job); err != nil {
		abortErr := o.deps.SyncClient.Abort(ctx, job, err.Error())
		o.recordTransition(ctx, job, instance.ID, "ABORTED", err.Error())
		if abortErr != nil {
			return Result{Job: job}, abortErr
		}
		return Result{Job: job, AbortedOn: err.Error()}, nil
	}

	// Step 9: finalize.
	if err := o.deps.SyncClient.Finalize(ctx, job, schedulerResult.Metadata.PartialDatasets); err != nil {
		o.recordTransition(ctx, job, instance.ID, "ABORTED", err.Error())
		return Result{Job: job}, err
	}
	o.recordTransition(ctx, job, instance.ID, "FINALIZED", "")

	// Step 10: execution result summary.
	return Result{Scheduler: schedulerResult, Job: job, Finalized: true}, nil
}

func (o *Orchestrator) validateMinCoreVersion(instance model.Instance) error {
	raw, ok := instance.Config["minCoreVersion"]
	if !ok || o.deps.CoreVersion == "" {
		return nil
	}
	required, ok := raw.(string)
	if !ok {
		return ierr.ConfigValidation("minCoreVersion must be a string", nil)
	}
	constraint, err := semver.NewConstraint(required)
	if err != nil {
		return ierr.ConfigValidation(fmt.Sprintf("minCoreVersion %q is not a valid constraint: %v", required, err), err)
	}
	coreVersion, err := semver.NewVersion(o.deps.CoreVersion)
	if err != nil {
		return ierr.Unexpected(fmt.Errorf("core version %q is not valid semver: %w", o.deps.CoreVersion, err))
	}
	if !constraint.Check(coreVersion) {
		return ierr.ConfigValidation(fmt.Sprintf("integration requires core %s, running %s", required, o.deps.CoreVersion), nil)
	}
	return nil
}

func (o *Orchestrator) recordTransition(ctx context.Context, job model.SynchronizationJob, instanceID, state, reason string) {
	if o.deps.JobStore == nil {
		return
	}
	_ = o.deps.JobStore.RecordTransition(ctx, job.ID, instanceID, state, reason)
}

func resolveStartStates(ctx context.Context, inv Invocation) (model.StartStates, error) {
	if inv.GetStepStartStates == nil {
		states := make(model.StartStates, len(inv.IntegrationSteps))
		for _, s := range inv.IntegrationSteps {
			states[s.ID] = model.StartState{}
		}
		return states, nil
	}
	return inv.GetStepStartStates(ctx)
}

func validateConfigFields(fields map[string]ConfigField, config map[string]any) error {
	for name, field := range fields {
		value, present := config[name]
		if !present {
			if field.Required {
				return ierr.ConfigValidation(fmt.Sprintf("missing required config field %q", name), nil)
			}
			continue
		}
		if !typeMatches(field.Type, value) {
			return ierr.ConfigValidation(fmt.Sprintf("config field %q expected type %s", name, field.Type), nil)
		}
	}
	return nil
}

func typeMatches(declared string, value any) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		default:
			return false
		}
	default:
		return true
	}
}
