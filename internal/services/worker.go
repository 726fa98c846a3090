package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

// WorkerPoolConfig tunes one pool. Poll interval and claim batch size are
// configuration, not constants.
type WorkerPoolConfig struct {
	Pool           tools.Pool
	Workers        int
	PollInterval   time.Duration
	ClaimBatchSize int
	JobTimeout     time.Duration
}

// WorkerPool polls the job table for its status namespace, claims jobs via
// the conditional update, executes the registered handler, and writes the
// terminal state. The claim is the row's status field, not an in-memory
// lock, so it survives process restarts.
type WorkerPool struct {
	cfg       WorkerPoolConfig
	registry  *tools.Registry
	repos     *repositories.Repositories
	base      *tools.RunContext
	telemetry *telemetry.TelemetryService
	logger    *logging.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewWorkerPool(cfg WorkerPoolConfig, registry *tools.Registry, repos *repositories.Repositories, base *tools.RunContext, telemetryService *telemetry.TelemetryService, logger *logging.Logger) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ClaimBatchSize <= 0 {
		cfg.ClaimBatchSize = 10
	}

	return &WorkerPool{
		cfg:       cfg,
		registry:  registry,
		repos:     repos,
		base:      base,
		telemetry: telemetryService,
		logger:    logger,
	}
}

// Start launches the pool's worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("%s worker pool is already running", p.cfg.Pool)
	}

	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("Starting %s worker pool with %d workers (poll %s, batch %d)",
		p.cfg.Pool, p.cfg.Workers, p.cfg.PollInterval, p.cfg.ClaimBatchSize)

	for i := 1; i <= p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	p.running = true
	return nil
}

// Stop signals the workers and waits for the jobs in flight to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.logger.Info("Stopping %s worker pool...", p.cfg.Pool)
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("%s worker pool stopped", p.cfg.Pool)
}

// runWorker is one poll loop: sleep, list claimable candidates oldest
// first, attempt the atomic claim per candidate, execute what it wins.
func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker %s-%d started", p.cfg.Pool, id)
	defer p.logger.Debug("Worker %s-%d stopped", p.cfg.Pool, id)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx, id)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *WorkerPool) pollOnce(ctx context.Context, workerID int) {
	queued := p.cfg.Pool.InitialJobStatus()

	candidates, err := p.repos.Jobs.ListClaimable(queued, p.cfg.ClaimBatchSize)
	if err != nil {
		p.logger.Error("Worker %s-%d failed to poll jobs: %v", p.cfg.Pool, workerID, err)
		return
	}

	for _, job := range candidates {
		if ctx.Err() != nil {
			return
		}

		claimed, err := p.repos.Jobs.Claim(job.ID, queued, p.cfg.Pool.RunningJobStatus())
		if err != nil {
			p.logger.Error("Worker %s-%d claim error on job %s: %v", p.cfg.Pool, workerID, job.ID, err)
			continue
		}
		if !claimed {
			// Another worker won the conditional update; move on.
			continue
		}

		p.executeJob(job, workerID)
	}
}

// executeJob runs a claimed job to its terminal state. The execution
// context is detached from the pool context so a shutdown lets the job in
// flight finish instead of abandoning a claimed row.
func (p *WorkerPool) executeJob(job *models.Job, workerID int) {
	p.logger.Info("Worker %s-%d executing job %s (%s)", p.cfg.Pool, workerID, job.ID, job.Type)
	started := time.Now()

	output, err := p.runHandler(job)
	elapsed := time.Since(started)

	if err != nil {
		p.logger.Info("Worker %s-%d job %s failed after %s: %v", p.cfg.Pool, workerID, job.ID, elapsed, err)
		p.telemetry.TrackJobCompleted(job.Type, models.JobStatusFailed, elapsed.Milliseconds())

		if ok, werr := p.repos.Jobs.Fail(job.ID, err.Error()); werr != nil {
			p.logger.Error("Worker %s-%d failed to write failure for job %s: %v", p.cfg.Pool, workerID, job.ID, werr)
		} else if !ok {
			p.logger.Error("Worker %s-%d lost terminal write on job %s (no longer running)", p.cfg.Pool, workerID, job.ID)
		}
		return
	}

	p.logger.Info("Worker %s-%d job %s succeeded in %s", p.cfg.Pool, workerID, job.ID, elapsed)
	p.telemetry.TrackJobCompleted(job.Type, models.JobStatusSucceeded, elapsed.Milliseconds())

	if ok, werr := p.repos.Jobs.Complete(job.ID, output); werr != nil {
		p.logger.Error("Worker %s-%d failed to write success for job %s: %v", p.cfg.Pool, workerID, job.ID, werr)
	} else if !ok {
		p.logger.Error("Worker %s-%d lost terminal write on job %s (no longer running)", p.cfg.Pool, workerID, job.ID)
	}
}

func (p *WorkerPool) runHandler(job *models.Job) (output json.RawMessage, err error) {
	tool, err := p.registry.Lookup(job.Type)
	if err != nil {
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}

	ctx := context.Background()
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("greenroom/worker").Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.type", job.Type),
			attribute.String("job.pool", string(p.cfg.Pool)),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	rc := runContextFor(p.base, p.repos, job.UserID)
	output, err = tool.Handler(ctx, rc, job.Input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return output, err
}
