package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/integration-core/pkg/model"
	"github.com/mindburn-labs/integration-core/pkg/syncdriver"
)

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/jobs"):
			_ = json.NewEncoder(w).Encode(map[string]any{"job": map[string]any{"id": "job-1"}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	return srv, &calls
}

func TestRunFinalizesOnAllStepsSucceeding(t *testing.T) {
	srv, calls := newTestServer(t)
	defer srv.Close()

	o := New(Dependencies{
		CacheDirRoot: t.TempDir(),
		SyncClient:   syncdriver.New(srv.URL, "token"),
	})

	steps := []model.Step{
		{ID: "a", Handler: func(execCtx *model.ExecutionContext) error {
			return execCtx.JobState.AddEntities(execCtx.Context, []model.Entity{{Key: "k1", Type: "t", Class: []string{"Resource"}}})
		}},
	}

	result, err := o.Run(context.Background(), model.Instance{ID: "inst-1"}, Invocation{IntegrationSteps: steps})
	require.NoError(t, err)
	assert.True(t, result.Finalized)
	assert.Contains(t, *calls, "/persister/synchronization/jobs/job-1/finalize")
}

func TestRunAbortsWhenValidateInvocationFails(t *testing.T) {
	srv, calls := newTestServer(t)
	defer srv.Close()

	o := New(Dependencies{
		CacheDirRoot: t.TempDir(),
		SyncClient:   syncdriver.New(srv.URL, "token"),
	})

	inv := Invocation{
		IntegrationSteps:   []model.Step{{ID: "a", Handler: func(*model.ExecutionContext) error { return nil }}},
		ValidateInvocation: func(context.Context) error { return assertErr{} },
	}

	result, err := o.Run(context.Background(), model.Instance{ID: "inst-1"}, inv)
	require.NoError(t, err)
	assert.False(t, result.Finalized)
	assert.NotEmpty(t, result.AbortedOn)
	assert.Contains(t, *calls, "/persister/synchronization/jobs/job-1/abort")
}

func TestRunRejectsMinCoreVersionMismatch(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	o := New(Dependencies{
		CacheDirRoot: t.TempDir(),
		SyncClient:   syncdriver.New(srv.URL, "token"),
		CoreVersion:  "1.0.0",
	})

	instance := model.Instance{ID: "inst-1", Config: map[string]any{"minCoreVersion": ">=2.0.0"}}
	_, err := o.Run(context.Background(), instance, Invocation{})
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "invocation invalid" }
