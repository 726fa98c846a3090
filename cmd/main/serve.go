package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"greenroom/internal/api"
	"greenroom/internal/auth"
	"greenroom/internal/services"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Greenroom API server",
	Long: `Start the HTTP API server with the background janitor. By default the
worker pools run in-process as well; pass --workers=false to run them as
separate processes with the worker command.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := auth.EnsureLocalUser(rt.repos); err != nil {
		return fmt.Errorf("failed to provision local user: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rt.cfg.OTELEndpoint != "" {
		shutdown, err := telemetry.SetupTracing(ctx, rt.cfg.OTELEndpoint)
		if err != nil {
			rt.logger.Error("Failed to set up tracing: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	janitor := services.NewJanitor(services.DefaultJanitorConfig(), rt.repos, rt.artifacts, rt.logger)
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer janitor.Stop()

	if inProcess, _ := cmd.Flags().GetBool("workers"); inProcess {
		pools := startWorkerPools(ctx, rt)
		defer func() {
			for _, pool := range pools {
				pool.Stop()
			}
		}()
	}

	// SIGINT/SIGTERM cancel the context; the API server, janitor, and
	// pools drain before the process exits.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		rt.logger.Info("Received shutdown signal")
		cancel()
	}()

	server := api.New(rt.cfg, rt.database, rt.registry, rt.executor, rt.dispatcher, telemetryService, rt.logger)
	return server.Start(ctx)
}

func startWorkerPools(ctx context.Context, rt *runtime) []*services.WorkerPool {
	poolConfigs := []services.WorkerPoolConfig{
		{
			Pool:           tools.PoolSearch,
			Workers:        rt.cfg.SearchWorkers,
			PollInterval:   rt.cfg.PollInterval,
			ClaimBatchSize: rt.cfg.ClaimBatchSize,
			JobTimeout:     rt.cfg.JobTimeout,
		},
		{
			Pool:           tools.PoolGeneric,
			Workers:        rt.cfg.GenericWorkers,
			PollInterval:   rt.cfg.PollInterval,
			ClaimBatchSize: rt.cfg.ClaimBatchSize,
			JobTimeout:     rt.cfg.JobTimeout,
		},
	}

	var pools []*services.WorkerPool
	for _, poolCfg := range poolConfigs {
		pool := services.NewWorkerPool(poolCfg, rt.registry, rt.repos, rt.base, telemetryService, rt.logger)
		if err := pool.Start(ctx); err != nil {
			rt.logger.Error("Failed to start %s pool: %v", poolCfg.Pool, err)
			continue
		}
		pools = append(pools, pool)
	}
	return pools
}
