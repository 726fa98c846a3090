package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenroom/internal/auth"
	internalconfig "greenroom/internal/config"
	"greenroom/internal/db"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/services"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

func setupTestServer(t *testing.T, localMode bool) (*gin.Engine, *repositories.Repositories) {
	t.Helper()

	testDB, err := db.NewTest(t)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	repos := repositories.New(testDB)
	_, err = auth.EnsureLocalUser(repos)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name:    "echo",
		Version: "1.0.0",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"msg": {"type": "string"}},
			"required": ["msg"],
			"additionalProperties": false
		}`),
		Handler: func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
			return input, nil
		},
	})
	registry.MustRegister(&tools.Tool{
		Name:        "outlier_search",
		Version:     "1.0.0",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"keywords":{"type":"array"}},"required":["keywords"]}`),
		Async:       true,
		Pool:        tools.PoolSearch,
		Pollable:    true,
		Handler: func(ctx context.Context, rc *tools.RunContext, input json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	})

	logger := logging.New(false)
	telemetryService := telemetry.NewTelemetryService(false)
	base := &tools.RunContext{Logger: logger}
	executor := services.NewExecutorService(registry, repos, base, telemetryService, logger)
	dispatcher := services.NewDispatcherService(registry, repos, telemetryService, logger)

	cfg := &internalconfig.Config{APIPort: 0, LocalMode: localMode}
	server := New(cfg, testDB, registry, executor, dispatcher, telemetryService, logger)
	return server.Router(), repos
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "greenroom-api")
}

func TestOpenAPIDocumentServes(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodGet, "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestListTools(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodGet, "/api/v1/tools", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Tools []struct {
			Name  string `json:"name"`
			Async bool   `json:"async"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Tools, 2)
	assert.Equal(t, "echo", response.Tools[0].Name)
	assert.Equal(t, "outlier_search", response.Tools[1].Name)
}

func TestInvokeSyncToolReturnsEnvelope(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/echo", `{"msg":"hi"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.JSONEq(t, `{"msg":"hi"}`, string(result.Data))
}

func TestInvokeAsyncToolDispatchesJob(t *testing.T) {
	router, repos := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/outlier_search", `{"keywords":["welding"]}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var handle struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &handle))
	assert.Equal(t, models.JobStatusSearchQueued, handle.Status)

	job, err := repos.Jobs.GetByID(handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, "outlier_search", job.Type)
}

func TestInvokeUnknownToolIs404(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/nope", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvokeWithInvalidInputIs400(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/echo", `{"msg":42}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var response struct {
		Tool             string `json:"tool"`
		ValidationErrors []struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"validation_errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "echo", response.Tool)
	require.NotEmpty(t, response.ValidationErrors)
	assert.Equal(t, "msg", response.ValidationErrors[0].Field)
}

func TestGetJobHidesForeignJobs(t *testing.T) {
	router, repos := setupTestServer(t, true)

	other, err := repos.Users.Create("someone-else", false, nil)
	require.NoError(t, err)
	job, err := repos.Jobs.Create(other.ID, nil, "outlier_search", models.JobStatusSearchQueued, json.RawMessage(`{}`))
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListActiveJobs(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/outlier_search", `{"keywords":["welding"]}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/jobs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
}

func TestRunsAuditEndpoint(t *testing.T) {
	router, _ := setupTestServer(t, true)

	w := doRequest(router, http.MethodPost, "/api/v1/tools/echo", `{"msg":"hi"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/runs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Runs []struct {
			ID       int64  `json:"id"`
			ToolName string `json:"tool_name"`
			Status   string `json:"status"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Runs, 1)
	assert.Equal(t, "echo", response.Runs[0].ToolName)
	assert.Equal(t, models.ToolRunStatusSucceeded, response.Runs[0].Status)
}

func TestSearchResultOwnerScoping(t *testing.T) {
	router, repos := setupTestServer(t, true)

	local, err := repos.Users.GetByUsername(auth.LocalUsername)
	require.NoError(t, err)
	mine, err := repos.SearchResults.Create(local.ID, "outlier_search", json.RawMessage(`{}`), []models.VideoItem{{ExternalID: "yt_abc", Title: "Mine"}})
	require.NoError(t, err)

	other, err := repos.Users.Create("someone-else", false, nil)
	require.NoError(t, err)
	theirs, err := repos.SearchResults.Create(other.ID, "outlier_search", json.RawMessage(`{}`), []models.VideoItem{{ExternalID: "yt_def", Title: "Theirs"}})
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/v1/search-results/"+mine.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/search-results/"+theirs.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerModeRequiresBearerKey(t *testing.T) {
	router, repos := setupTestServer(t, false)

	w := doRequest(router, http.MethodGet, "/api/v1/tools", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/tools", "", map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	key := "gr_test_key_123"
	_, err := repos.Users.Create("keyed", false, &key)
	require.NoError(t, err)

	w = doRequest(router, http.MethodGet, "/api/v1/tools", "", map[string]string{"Authorization": "Bearer " + key})
	assert.Equal(t, http.StatusOK, w.Code)
}
