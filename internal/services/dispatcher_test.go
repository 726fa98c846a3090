package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

func newDispatcher(repos *repositories.Repositories, registry *tools.Registry) *DispatcherService {
	logger := logging.New(false)
	return NewDispatcherService(registry, repos, telemetry.NewTelemetryService(false), logger)
}

func searchTool(name string) *tools.Tool {
	return &tools.Tool{
		Name:        name,
		Version:     "1.0.0",
		InputSchema: json.RawMessage(echoSchema),
		Async:       true,
		Pool:        tools.PoolSearch,
		Pollable:    true,
		Handler: func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}
}

func TestDispatchCreatesJobInPoolNamespace(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))

	generic := searchTool("transcribe_video")
	generic.Pool = tools.PoolGeneric
	generic.Pollable = false
	registry.MustRegister(generic)

	svc := newDispatcher(repos, registry)

	handle, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, handle.JobID)
	assert.Equal(t, models.JobStatusSearchQueued, handle.Status)

	handle, err = svc.Dispatch(context.Background(), "transcribe_video", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, handle.Status)
}

func TestDispatchRejectsSyncTool(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(echoTool())
	svc := newDispatcher(repos, registry)

	_, err := svc.Dispatch(context.Background(), "echo", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synchronous")
}

func TestDispatchValidationFailureWritesNoJob(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))
	svc := newDispatcher(repos, registry)

	_, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{}`))
	var verr *tools.ValidationError
	require.ErrorAs(t, err, &verr)

	jobs, err := repos.Jobs.ListRecent(user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGetJobHidesForeignJobs(t *testing.T) {
	repos, user := setupServiceDeps(t)
	other, err := repos.Users.Create("other", false, nil)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))
	svc := newDispatcher(repos, registry)

	handle, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.NoError(t, err)

	_, err = svc.GetJob(context.Background(), handle.JobID, other.ID)
	var nfe *tools.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "job", nfe.Resource)
}

func TestGetJobResolvesSearchResultInline(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))
	svc := newDispatcher(repos, registry)

	handle, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.NoError(t, err)

	// Walk the job through a worker's lifecycle by hand.
	claimed, err := repos.Jobs.Claim(handle.JobID, models.JobStatusSearchQueued, models.JobStatusSearchRunning)
	require.NoError(t, err)
	require.True(t, claimed)

	sr, err := repos.SearchResults.Create(user.ID, "outlier_search", json.RawMessage(`{"msg":"go"}`), []models.VideoItem{
		{ExternalID: "yt_abc", Title: "How to weld", ViewCount: 120000},
	})
	require.NoError(t, err)

	output, _ := json.Marshal(map[string]string{"search_result_id": sr.ID})
	ok, err := repos.Jobs.Complete(handle.JobID, output)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := svc.GetJob(context.Background(), handle.JobID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, got.Status)
	require.NotNil(t, got.SearchResult)
	assert.Equal(t, sr.ID, got.SearchResult.ID)
	require.Len(t, got.SearchResult.Results, 1)
	assert.Equal(t, "yt_abc", got.SearchResult.Results[0].ExternalID)
}

func TestGetJobWithoutResultReferenceStaysBare(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))
	svc := newDispatcher(repos, registry)

	handle, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{"msg":"go"}`))
	require.NoError(t, err)

	got, err := svc.GetJob(context.Background(), handle.JobID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSearchQueued, got.Status)
	assert.Nil(t, got.SearchResult)
}

func TestListActiveDefaultsToPollableTypes(t *testing.T) {
	repos, user := setupServiceDeps(t)
	registry := tools.NewRegistry()
	registry.MustRegister(searchTool("outlier_search"))

	hidden := searchTool("transcribe_video")
	hidden.Pool = tools.PoolGeneric
	hidden.Pollable = false
	registry.MustRegister(hidden)

	svc := newDispatcher(repos, registry)

	_, err := svc.Dispatch(context.Background(), "outlier_search", user.ID, json.RawMessage(`{"msg":"a"}`))
	require.NoError(t, err)
	_, err = svc.Dispatch(context.Background(), "transcribe_video", user.ID, json.RawMessage(`{"msg":"b"}`))
	require.NoError(t, err)

	active, err := svc.ListActive(context.Background(), user.ID, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "outlier_search", active[0].Type)

	active, err = svc.ListActive(context.Background(), user.ID, "transcribe_video")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "transcribe_video", active[0].Type)
}
