package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenroom/internal/db"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

func setupServiceDeps(t *testing.T) (*repositories.Repositories, *models.User) {
	t.Helper()

	testDB, err := db.NewTest(t)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	repos := repositories.New(testDB)
	user, err := repos.Users.Create("tester", false, nil)
	require.NoError(t, err)

	return repos, user
}

func newExecutor(repos *repositories.Repositories, registry *tools.Registry) *ExecutorService {
	logger := logging.New(false)
	base := &tools.RunContext{Logger: logger}
	return NewExecutorService(registry, repos, base, telemetry.NewTelemetryService(false), logger)
}

const echoSchema = `{
	"type": "object",
	"properties": {"msg": {"type": "string"}},
	"required": ["msg"],
	"additionalProperties": false
}`

func echoTool() *tools.Tool {
	return &tools.Tool{
		Name:        "echo",
		Version:     "1.0.0",
		InputSchema: json.RawMessage(echoSchema),
		Handler: func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
			return input, nil
		},
	}
}

func TestExecuteRecordsToolRun(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(echoTool())
	svc := newExecutor(repos, registry)

	result, err := svc.Execute(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.JSONEq(t, `{"msg":"hi"}`, string(result.Data))

	runs, err := repos.ToolRuns.ListForUser(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "echo", runs[0].ToolName)
	assert.Equal(t, models.ToolRunStatusSucceeded, runs[0].Status)
	require.NotNil(t, runs[0].DurationMs)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestExecuteUnknownTool(t *testing.T) {
	repos, user := setupServiceDeps(t)
	svc := newExecutor(repos, tools.NewRegistry())

	_, err := svc.Execute(context.Background(), "nope", user.ID, json.RawMessage(`{}`))
	var nfe *tools.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestExecuteRejectsAsyncTool(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	tool := echoTool()
	tool.Name = "search_thing"
	tool.Async = true
	tool.Pool = tools.PoolSearch
	registry.MustRegister(tool)
	svc := newExecutor(repos, registry)

	_, err := svc.Execute(context.Background(), "search_thing", user.ID, json.RawMessage(`{"msg":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatched as a job")
}

func TestExecuteValidationFailureWritesNoRun(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(echoTool())
	svc := newExecutor(repos, registry)

	_, err := svc.Execute(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":7}`))
	var verr *tools.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "echo", verr.ToolName)

	runs, err := repos.ToolRuns.ListForUser(user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExecuteHandlerErrorStaysInEnvelope(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	tool := echoTool()
	tool.Handler = func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("upstream timed out")
	}
	registry.MustRegister(tool)
	svc := newExecutor(repos, registry)

	result, err := svc.Execute(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "upstream timed out", result.Error)

	runs, err := repos.ToolRuns.ListForUser(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ToolRunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)
	assert.Equal(t, "upstream timed out", *runs[0].Error)
}

func TestExecuteRecoversHandlerPanic(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	tool := echoTool()
	tool.Handler = func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
		panic("boom")
	}
	registry.MustRegister(tool)
	svc := newExecutor(repos, registry)

	result, err := svc.Execute(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panicked")

	runs, err := repos.ToolRuns.ListForUser(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.ToolRunStatusFailed, runs[0].Status)
}

func TestExecuteHandlerSeesCallerIdentity(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()

	var seenUserID int64
	tool := echoTool()
	tool.Handler = func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
		seenUserID = rc.UserID
		return json.RawMessage(`{}`), nil
	}
	registry.MustRegister(tool)
	svc := newExecutor(repos, registry)

	_, err := svc.Execute(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, user.ID, seenUserID)
}
