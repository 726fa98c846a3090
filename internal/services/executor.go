package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
)

// ToolResult is the uniform envelope every synchronous execution returns.
// Handler failures are captured here, never re-thrown past the executor.
type ToolResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ExecutorService runs synchronous tools in the request path and records a
// ToolRun audit row for every invocation that passes validation.
type ExecutorService struct {
	registry  *tools.Registry
	repos     *repositories.Repositories
	base      *tools.RunContext
	telemetry *telemetry.TelemetryService
	logger    *logging.Logger
}

func NewExecutorService(registry *tools.Registry, repos *repositories.Repositories, base *tools.RunContext, telemetryService *telemetry.TelemetryService, logger *logging.Logger) *ExecutorService {
	return &ExecutorService{
		registry:  registry,
		repos:     repos,
		base:      base,
		telemetry: telemetryService,
		logger:    logger,
	}
}

// runContextFor clones the injected collaborators for one caller.
func runContextFor(base *tools.RunContext, repos *repositories.Repositories, userID int64) *tools.RunContext {
	rc := *base
	rc.UserID = userID
	rc.Repos = repos
	return &rc
}

// Execute validates input, invokes the handler, and records exactly one
// ToolRun regardless of outcome. Validation and unknown-tool failures
// return an error before any row exists; handler failures come back inside
// the envelope.
func (s *ExecutorService) Execute(ctx context.Context, toolName string, userID int64, input json.RawMessage) (*ToolResult, error) {
	tool, err := s.registry.Lookup(toolName)
	if err != nil {
		return nil, err
	}
	if tool.Async {
		return nil, fmt.Errorf("tool %q is async and must be dispatched as a job", toolName)
	}

	if err := tools.Validate(tool, input); err != nil {
		return nil, err
	}

	run, err := s.repos.ToolRuns.Create(tool.Name, tool.Version, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to record tool run: %w", err)
	}

	rc := runContextFor(s.base, s.repos, userID)
	started := time.Now()

	spanCtx, span := otel.Tracer("greenroom/executor").Start(ctx, "tool.execute",
		trace.WithAttributes(
			attribute.String("tool.name", tool.Name),
			attribute.String("tool.version", tool.Version),
		))
	output, handlerErr := s.invoke(spanCtx, tool, rc, input)
	elapsed := time.Since(started)

	if handlerErr != nil {
		span.SetStatus(codes.Error, handlerErr.Error())
		span.End()

		if err := s.repos.ToolRuns.MarkFailed(run.ID, handlerErr.Error(), nil, elapsed); err != nil {
			s.logger.Error("Failed to update tool run %d: %v", run.ID, err)
		}
		s.telemetry.TrackToolExecuted(tool.Name, false, elapsed.Milliseconds())
		s.logger.Info("Tool %s failed after %s: %v", tool.Name, elapsed, handlerErr)

		return &ToolResult{Success: false, Error: handlerErr.Error()}, nil
	}

	span.End()

	if err := s.repos.ToolRuns.MarkSucceeded(run.ID, output, nil, elapsed); err != nil {
		s.logger.Error("Failed to update tool run %d: %v", run.ID, err)
	}
	s.telemetry.TrackToolExecuted(tool.Name, true, elapsed.Milliseconds())
	s.logger.Debug("Tool %s succeeded in %s", tool.Name, elapsed)

	return &ToolResult{Success: true, Data: output}, nil
}

// invoke runs the handler and converts a panic into a handler error so one
// bad tool cannot take the request path down.
func (s *ExecutorService) invoke(ctx context.Context, tool *tools.Tool, rc *tools.RunContext, input json.RawMessage) (output json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()

	return tool.Handler(ctx, rc, input)
}
