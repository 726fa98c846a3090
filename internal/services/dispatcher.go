package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

// JobHandle is what a caller gets back from a dispatch: enough to poll,
// nothing more.
type JobHandle struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// DispatcherService persists async tool invocations as jobs for the worker
// pools and answers job status reads.
type DispatcherService struct {
	registry  *tools.Registry
	repos     *repositories.Repositories
	telemetry *telemetry.TelemetryService
	logger    *logging.Logger
}

func NewDispatcherService(registry *tools.Registry, repos *repositories.Repositories, telemetryService *telemetry.TelemetryService, logger *logging.Logger) *DispatcherService {
	return &DispatcherService{
		registry:  registry,
		repos:     repos,
		telemetry: telemetryService,
		logger:    logger,
	}
}

// Dispatch validates input and inserts a job in the initial status of the
// tool's pool. All-or-nothing: validation and unknown-tool errors happen
// before any row is written.
func (s *DispatcherService) Dispatch(ctx context.Context, toolName string, userID int64, input json.RawMessage) (*JobHandle, error) {
	tool, err := s.registry.Lookup(toolName)
	if err != nil {
		return nil, err
	}
	if !tool.Async {
		return nil, fmt.Errorf("tool %q is synchronous and cannot be dispatched as a job", toolName)
	}

	if err := tools.Validate(tool, input); err != nil {
		return nil, err
	}

	job, err := s.repos.Jobs.Create(userID, nil, tool.Name, tool.Pool.InitialJobStatus(), input)
	if err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.telemetry.TrackJobDispatched(tool.Name, string(tool.Pool))
	s.logger.Info("Dispatched %s job %s for user %d", tool.Name, job.ID, userID)

	return &JobHandle{JobID: job.ID, Status: job.Status}, nil
}

// GetJob returns the caller's job by id. A job that is absent or owned by
// someone else reports identically as not found. For terminal-succeeded
// jobs whose output carries a search_result_id, the cached SearchResult is
// resolved inline to spare the caller a second round trip.
func (s *DispatcherService) GetJob(ctx context.Context, jobID string, userID int64) (*models.JobWithResult, error) {
	job, err := s.repos.Jobs.GetByIDForUser(jobID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &tools.NotFoundError{Resource: "job", ID: jobID}
		}
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	result := &models.JobWithResult{Job: *job}

	if job.Status == models.JobStatusSucceeded && job.Output != nil {
		var output struct {
			SearchResultID string `json:"search_result_id"`
		}
		if err := json.Unmarshal(*job.Output, &output); err == nil && output.SearchResultID != "" {
			sr, err := s.repos.SearchResults.GetByIDForUser(output.SearchResultID, userID)
			if err != nil {
				s.logger.Debug("Job %s references search result %s that could not be loaded: %v", job.ID, output.SearchResultID, err)
			} else {
				result.SearchResult = sr
			}
		}
	}

	return result, nil
}

// ListActive returns the caller's non-terminal jobs. With an explicit type
// the filter is exactly that type; otherwise the view is restricted to the
// tools declared pollable.
func (s *DispatcherService) ListActive(ctx context.Context, userID int64, jobType string) ([]*models.Job, error) {
	var types []string
	if jobType != "" {
		types = []string{jobType}
	} else {
		types = s.registry.PollableTypes()
	}

	jobs, err := s.repos.Jobs.ListActive(userID, types)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	return jobs, nil
}
