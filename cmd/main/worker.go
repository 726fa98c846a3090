package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"greenroom/internal/services"
	"greenroom/internal/tools"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one worker pool against the job queue",
	Long: `Run a standalone worker process for one pool. Search workers consume the
search_queued namespace; generic workers consume queued. Multiple worker
processes can share one database: the conditional claim makes sure each
job runs exactly once.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	poolName, _ := cmd.Flags().GetString("pool")

	var pool tools.Pool
	switch poolName {
	case "search":
		pool = tools.PoolSearch
	case "generic":
		pool = tools.PoolGeneric
	default:
		return fmt.Errorf("unknown pool %q (expected search or generic)", poolName)
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		if pool == tools.PoolSearch {
			workers = rt.cfg.SearchWorkers
		} else {
			workers = rt.cfg.GenericWorkers
		}
	}

	wp := services.NewWorkerPool(services.WorkerPoolConfig{
		Pool:           pool,
		Workers:        workers,
		PollInterval:   rt.cfg.PollInterval,
		ClaimBatchSize: rt.cfg.ClaimBatchSize,
		JobTimeout:     rt.cfg.JobTimeout,
	}, rt.registry, rt.repos, rt.base, telemetryService, rt.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := wp.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	rt.logger.Info("Received shutdown signal")

	wp.Stop()
	return nil
}
