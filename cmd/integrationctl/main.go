// Command integrationctl is the thin CLI driver around the integration
// execution core. It knows nothing about any particular provider: the
// step graph and config shape are supplied by Invocation, which a real
// integration wires up by replacing the placeholder in newInvocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindburn-labs/integration-core/pkg/config"
	"github.com/mindburn-labs/integration-core/pkg/model"
	"github.com/mindburn-labs/integration-core/pkg/orchestrator"
	"github.com/mindburn-labs/integration-core/pkg/syncdriver"
	"github.com/mindburn-labs/integration-core/pkg/syncjobstore"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 || args[1] != "run" {
		fmt.Fprintln(os.Stderr, "Usage: integrationctl run -i <integrationInstanceId>")
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	instanceID := fs.String("i", "", "integration instance id")
	if err := fs.Parse(args[2:]); err != nil {
		return 2
	}
	if *instanceID == "" {
		fmt.Fprintln(os.Stderr, "missing required -i <integrationInstanceId>")
		return 2
	}

	cfg := config.Load()
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "JUPITERONE_API_KEY is required")
		return 2
	}
	if err := syncdriver.CheckAPIKeyExpiry(cfg.APIKey); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var jobStore *syncjobstore.Store
	if cfg.PostgresDSN != "" {
		db, err := syncjobstore.Open(cfg.PostgresDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer db.Close()
		jobStore = syncjobstore.New(db)
		if err := jobStore.Init(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	o := orchestrator.New(orchestrator.Dependencies{
		CacheDirRoot:         cfg.CacheDirRoot,
		SyncClient:           syncdriver.New(cfg.SyncAPIBaseURL, cfg.APIKey),
		SchedulerConcurrency: cfg.SchedulerConcurrency,
		UploadConcurrency:    cfg.UploadConcurrency,
		JobStore:             jobStore,
		CoreVersion:          cfg.CoreVersion,
	})

	instance := model.Instance{ID: *instanceID}
	result, err := o.Run(ctx, instance, newInvocation())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !result.Finalized {
		fmt.Fprintf(os.Stderr, "job %s aborted: %s\n", result.Job.ID, result.AbortedOn)
		return 1
	}

	fmt.Printf("job %s finalized\n", result.Job.ID)
	return 0
}

// newInvocation is the seam a real integration replaces with its own
// step graph, config field declarations, and optional hooks.
func newInvocation() orchestrator.Invocation {
	return orchestrator.Invocation{
		IntegrationSteps: []model.Step{},
	}
}
