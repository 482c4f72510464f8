package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/integration-core/pkg/model"
)

type nullLogger struct{}

func (nullLogger) Info(string, ...any)                             {}
func (nullLogger) Warn(string, ...any)                             {}
func (nullLogger) Error(string, ...any)                            {}
func (nullLogger) Trace(string, ...any)                            {}
func (n nullLogger) Child(map[string]any) model.Logger             { return n }
func (nullLogger) PublishEvent(model.Event)                        {}
func (nullLogger) PublishErrorEvent(model.ErrorEvent)               {}
func (nullLogger) PublishMetric(model.Metric)                      {}
func (nullLogger) StepStart(model.Step)                            {}
func (nullLogger) StepSuccess(model.Step)                          {}
func (nullLogger) StepFailure(model.Step, error)                   {}
func (nullLogger) ValidationFailure(error)                         {}
func (nullLogger) SynchronizationUploadStart(model.SynchronizationJob) {}
func (nullLogger) SynchronizationUploadEnd(model.SynchronizationJob)   {}
func (nullLogger) IsHandledError(error) bool                       { return false }

func execCtxFactory() ContextFactory {
	return func(step model.Step) *model.ExecutionContext {
		return &model.ExecutionContext{Logger: nullLogger{}}
	}
}

func TestStartStateInvalidStepIDIsRejected(t *testing.T) {
	steps := []model.Step{{ID: "a", Handler: func(*model.ExecutionContext) error { return nil }}}
	_, err := Run(context.Background(), steps, model.StartStates{"a": {}, "ghost": {}}, 1, execCtxFactory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_VALIDATION")
}

func TestUnaccountedStepStartStatesIsRejected(t *testing.T) {
	steps := []model.Step{{ID: "a"}, {ID: "b"}}
	_, err := Run(context.Background(), steps, model.StartStates{"a": {}}, 1, execCtxFactory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
}

func TestDependencyFailurePropagatesAsPartialSuccess(t *testing.T) {
	steps := []model.Step{
		{ID: "a", Handler: func(*model.ExecutionContext) error { return errors.New("boom") }},
		{ID: "b", DependsOn: []string{"a"}, Handler: func(*model.ExecutionContext) error { return nil }},
	}
	states := model.StartStates{"a": {}, "b": {}}

	result, err := Run(context.Background(), steps, states, 2, execCtxFactory())
	require.NoError(t, err)

	byID := map[string]model.StepResult{}
	for _, r := range result.IntegrationStepResults {
		byID[r.ID] = r
	}
	assert.Equal(t, model.StatusFailure, byID["a"].Status)
	assert.Equal(t, model.StatusPartialSuccessDueToDependencyFailure, byID["b"].Status)
}

func TestDisabledStepNeverRuns(t *testing.T) {
	ran := false
	steps := []model.Step{
		{ID: "a", Handler: func(*model.ExecutionContext) error { ran = true; return nil }},
	}
	states := model.StartStates{"a": {Disabled: true}}

	result, err := Run(context.Background(), steps, states, 1, execCtxFactory())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, model.StatusDisabled, result.IntegrationStepResults[0].Status)
}

func TestConcurrencyCapIsRespected(t *testing.T) {
	var mu sync.Mutex
	maxSeen, current := 0, 0
	block := make(chan struct{})
	released := false

	handler := func(*model.ExecutionContext) error {
		mu.Lock()
		current++
		if current > maxSeen {
			maxSeen = current
		}
		mu.Unlock()

		<-block

		mu.Lock()
		current--
		mu.Unlock()
		return nil
	}

	steps := []model.Step{
		{ID: "a", Handler: handler},
		{ID: "b", Handler: handler},
		{ID: "c", Handler: handler},
	}
	states := model.StartStates{"a": {}, "b": {}, "c": {}}

	done := make(chan struct{})
	go func() {
		_, _ = Run(context.Background(), steps, states, 2, execCtxFactory())
		close(done)
	}()

	go func() {
		for {
			mu.Lock()
			c := current
			mu.Unlock()
			if c == 2 && !released {
				released = true
				close(block)
				return
			}
		}
	}()

	<-done
	assert.LessOrEqual(t, maxSeen, 2)
}

func TestPartialDatasetsUnionsNonSuccessStepTypes(t *testing.T) {
	steps := []model.Step{
		{ID: "a", Types: []string{"acct_entity"}, Handler: func(*model.ExecutionContext) error { return errors.New("x") }},
		{ID: "b", Types: []string{"user_entity"}, Handler: func(*model.ExecutionContext) error { return nil }},
	}
	states := model.StartStates{"a": {}, "b": {}}

	result, err := Run(context.Background(), steps, states, 2, execCtxFactory())
	require.NoError(t, err)
	assert.Equal(t, []string{"acct_entity"}, result.Metadata.PartialDatasets.Types)
}
