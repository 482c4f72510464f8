package orchestrator

import (
	"context"

	"github.com/mindburn-labs/integration-core/pkg/graphstore"
	"github.com/mindburn-labs/integration-core/pkg/model"
	"github.com/mindburn-labs/integration-core/pkg/scheduler"
)

func preflightStartStates(steps []model.Step, states model.StartStates) error {
	return scheduler.ValidateStartStates(steps, states)
}

func (o *Orchestrator) runScheduler(ctx context.Context, instance model.Instance, inv Invocation, startStates model.StartStates, log model.Logger, store *graphstore.Store) (model.SchedulerResult, error) {
	newExecCtx := func(step model.Step) *model.ExecutionContext {
		return &model.ExecutionContext{
			Logger:   log.Child(map[string]any{"step": step.ID}),
			JobState: newStepJobState(step.ID, store, o.deps.Validator),
			Instance: instance,
		}
	}
	return scheduler.Run(ctx, inv.IntegrationSteps, startStates, o.deps.SchedulerConcurrency, newExecCtx)
}
