// Package wasmstep adapts a compiled WebAssembly module into a
// model.StepHandler, letting a step's collection logic run sandboxed
// (tetratelabs/wazero) instead of as native Go code supplied at compile
// time — a supplemental collection path beyond the scheduler's usual
// in-process handler.
//
// The module receives the instance config as JSON on stdin and must
// write a JSON document `{"entities": [...], "relationships": [...]}` to
// stdout; the adapter forwards the decoded objects to the step's
// JobState. No filesystem, network, or environment access is wired in:
// deny-by-default, the same posture the sandbox this is grounded on
// uses.
package wasmstep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// Adapter compiles a WASM module once and produces a StepHandler per
// call to Handler.
type Adapter struct {
	runtime      wazero.Runtime
	compiled     wazero.CompiledModule
	timeout      time.Duration
}

// New compiles wasmBytes against a deny-by-default WASI runtime.
func New(ctx context.Context, wasmBytes []byte, timeout time.Duration) (*Adapter, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasmstep: instantiate WASI: %w", err)
	}

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasmstep: compile module: %w", err)
	}

	return &Adapter{runtime: r, compiled: compiled, timeout: timeout}, nil
}

// Close releases the wazero runtime and compiled module.
func (a *Adapter) Close(ctx context.Context) error {
	return a.runtime.Close(ctx)
}

type output struct {
	Entities      []model.Entity       `json:"entities"`
	Relationships []model.Relationship `json:"relationships"`
}

// Handler returns a model.StepHandler that runs the compiled module once
// per invocation, feeding it the instance config and forwarding its
// output to the execution context's JobState.
func (a *Adapter) Handler() model.StepHandler {
	return func(execCtx *model.ExecutionContext) error {
		ctx := execCtx.Context
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		input, err := json.Marshal(execCtx.Instance.Config)
		if err != nil {
			return ierr.StepExecution("wasmstep", fmt.Errorf("encode input: %w", err))
		}

		var stdout, stderr bytes.Buffer
		modCfg := wazero.NewModuleConfig().
			WithStartFunctions("_start").
			WithStdin(bytes.NewReader(input)).
			WithStdout(&stdout).
			WithStderr(&stderr)

		mod, err := a.runtime.InstantiateModule(ctx, a.compiled, modCfg)
		if err != nil {
			if ctx.Err() != nil {
				return ierr.StepExecution("wasmstep", fmt.Errorf("execution timed out: %w", ctx.Err()))
			}
			return ierr.StepExecution("wasmstep", fmt.Errorf("instantiate: %w", err))
		}
		defer func() { _ = mod.Close(ctx) }()

		if stderr.Len() > 0 {
			return ierr.StepExecution("wasmstep", fmt.Errorf("stderr: %s", stderr.String()))
		}

		var out output
		if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
			return ierr.StepExecution("wasmstep", fmt.Errorf("decode output: %w", err))
		}

		if len(out.Entities) > 0 {
			if err := execCtx.JobState.AddEntities(ctx, out.Entities); err != nil {
				return err
			}
		}
		if len(out.Relationships) > 0 {
			if err := execCtx.JobState.AddRelationships(ctx, out.Relationships); err != nil {
				return err
			}
		}
		return nil
	}
}
