package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenroom/internal/clients"
	"greenroom/internal/db"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/provider"
	"greenroom/internal/storage"
	"greenroom/internal/tools"
	"greenroom/pkg/models"
)

func setupRunContext(t *testing.T) *tools.RunContext {
	t.Helper()

	testDB, err := db.NewTest(t)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	repos := repositories.New(testDB)
	user, err := repos.Users.Create("creator", false, nil)
	require.NoError(t, err)

	store, err := storage.NewFSArtifactStore(afero.NewMemMapFs(), "/artifacts", storage.DefaultConfig())
	require.NoError(t, err)

	return &tools.RunContext{
		UserID:           user.ID,
		Repos:            repos,
		Artifacts:        store,
		Logger:           logging.New(false),
		BatchMaxItems:    10,
		BatchConcurrency: 3,
	}
}

func TestRegisterWiresFullCatalog(t *testing.T) {
	registry := tools.NewRegistry()
	Register(registry)

	var names []string
	for _, tool := range registry.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"channel_analyze",
		"fetch_transcripts",
		"generate_thumbnails",
		"idea_brief",
		"outlier_search",
		"save_idea",
		"transcribe_video",
	}, names)

	// The research tools poll; the generic async tool does not.
	assert.Equal(t, []string{"channel_analyze", "outlier_search"}, registry.PollableTypes())

	for _, tool := range registry.List() {
		if tool.Async {
			assert.NotEmpty(t, tool.Pool, "async tool %s needs a pool", tool.Name)
		}
	}
}

func TestOutlierSearchCachesResults(t *testing.T) {
	rc := setupRunContext(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/outlier-search", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []models.VideoItem{
				{ExternalID: "yt_abc", Title: "How to weld", ViewCount: 500000},
				{ExternalID: "yt_def", Title: "TIG basics", ViewCount: 90000},
			},
		})
	}))
	defer server.Close()
	rc.Search = clients.NewSearchClient(server.URL, "test-key")

	raw, err := OutlierSearch().Handler(context.Background(), rc, json.RawMessage(`{"keywords":["welding"],"max_results":10}`))
	require.NoError(t, err)

	var output searchOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Equal(t, 2, output.ResultsCount)
	require.NotEmpty(t, output.SearchResultID)

	sr, err := rc.Repos.SearchResults.GetByIDForUser(output.SearchResultID, rc.UserID)
	require.NoError(t, err)
	assert.Equal(t, "outlier_search", sr.SearchType)
	require.Len(t, sr.Results, 2)
	assert.Equal(t, "yt_abc", sr.Results[0].ExternalID)
}

func TestChannelAnalyzeUsesOwnSearchType(t *testing.T) {
	rc := setupRunContext(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/channel-analyze", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []models.VideoItem{{ExternalID: "yt_abc", Title: "Upload one"}},
		})
	}))
	defer server.Close()
	rc.Search = clients.NewSearchClient(server.URL, "")

	raw, err := ChannelAnalyze().Handler(context.Background(), rc, json.RawMessage(`{"channel_id":"UC123"}`))
	require.NoError(t, err)

	var output searchOutput
	require.NoError(t, json.Unmarshal(raw, &output))

	sr, err := rc.Repos.SearchResults.GetByIDForUser(output.SearchResultID, rc.UserID)
	require.NoError(t, err)
	assert.Equal(t, "channel_analysis", sr.SearchType)
}

func transcriptServer(t *testing.T, unavailable ...string) *httptest.Server {
	t.Helper()
	missing := make(map[string]bool)
	for _, id := range unavailable {
		missing[id] = true
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("video_id")
		if missing[videoID] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(clients.Transcript{
			VideoID:  videoID,
			Language: "en",
			Segments: []clients.TranscriptSegment{
				{Start: 0, Text: "welcome back"},
				{Start: 2.5, Text: "today we weld"},
			},
		})
	}))
}

func TestTranscribeVideoStoresTranscript(t *testing.T) {
	rc := setupRunContext(t)

	server := transcriptServer(t)
	defer server.Close()
	rc.Transcripts = clients.NewTranscriptClient(server.URL, "")

	video, err := rc.Repos.Videos.UpsertFromItem(rc.UserID, models.VideoItem{ExternalID: "yt_abc", Title: "How to weld"})
	require.NoError(t, err)

	raw, err := TranscribeVideo().Handler(context.Background(), rc, json.RawMessage(`{"video_id":"yt_abc","language":"en"}`))
	require.NoError(t, err)

	var output transcribeVideoOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Equal(t, 2, output.SegmentCount)
	assert.Equal(t, "en", output.Language)

	stored, err := rc.Repos.Videos.GetByID(video.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Transcript)
	assert.Equal(t, "welcome back today we weld", *stored.Transcript)
}

func TestTranscribeVideoRequiresSavedVideo(t *testing.T) {
	rc := setupRunContext(t)

	server := transcriptServer(t)
	defer server.Close()
	rc.Transcripts = clients.NewTranscriptClient(server.URL, "")

	_, err := TranscribeVideo().Handler(context.Background(), rc, json.RawMessage(`{"video_id":"yt_unsaved"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not saved")
}

func TestFetchTranscriptsPartialFailure(t *testing.T) {
	rc := setupRunContext(t)

	server := transcriptServer(t, "yt_gone")
	defer server.Close()
	rc.Transcripts = clients.NewTranscriptClient(server.URL, "")

	raw, err := FetchTranscripts().Handler(context.Background(), rc, json.RawMessage(`{"video_ids":["yt_a","yt_gone","yt_b"]}`))
	require.NoError(t, err)

	var output fetchTranscriptsOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Len(t, output.Transcripts, 2)
	require.Len(t, output.Warnings, 1)
	assert.Contains(t, output.Warnings[0], "yt_gone")
}

func TestFetchTranscriptsTotalFailure(t *testing.T) {
	rc := setupRunContext(t)

	server := transcriptServer(t, "yt_a", "yt_b")
	defer server.Close()
	rc.Transcripts = clients.NewTranscriptClient(server.URL, "")

	_, err := FetchTranscripts().Handler(context.Background(), rc, json.RawMessage(`{"video_ids":["yt_a","yt_b"]}`))
	var total *tools.BatchTotalFailure
	require.ErrorAs(t, err, &total)
	assert.Equal(t, 2, total.Total)
}

func TestFetchTranscriptsTruncatesPastCap(t *testing.T) {
	rc := setupRunContext(t)
	rc.BatchMaxItems = 2

	server := transcriptServer(t)
	defer server.Close()
	rc.Transcripts = clients.NewTranscriptClient(server.URL, "")

	raw, err := FetchTranscripts().Handler(context.Background(), rc, json.RawMessage(`{"video_ids":["yt_a","yt_b","yt_c","yt_d"]}`))
	require.NoError(t, err)

	var output fetchTranscriptsOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Len(t, output.Transcripts, 2)
	assert.Equal(t, 2, output.Truncated)
}

func TestGenerateThumbnailsStoresArtifacts(t *testing.T) {
	rc := setupRunContext(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()
	rc.Images = clients.NewImageClient(server.URL, "")

	raw, err := GenerateThumbnails().Handler(context.Background(), rc, json.RawMessage(
		`{"reference_url":"https://img.example.com/ref.png","prompt":"bold red text","count":2}`))
	require.NoError(t, err)

	var output generateThumbnailsOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	require.Len(t, output.Thumbnails, 2)
	assert.Empty(t, output.Warnings)

	for _, thumb := range output.Thumbnails {
		assert.True(t, strings.HasPrefix(thumb.Key, "thumbnails/"), "unexpected key %s", thumb.Key)
		reader, _, err := rc.Artifacts.Get(context.Background(), thumb.Key)
		require.NoError(t, err)
		reader.Close()
	}
}

func TestGenerateThumbnailsRejectsPrivateReference(t *testing.T) {
	rc := setupRunContext(t)

	_, err := GenerateThumbnails().Handler(context.Background(), rc, json.RawMessage(
		`{"reference_url":"http://169.254.169.254/latest","prompt":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestSaveIdeaBackfillsThroughHandler(t *testing.T) {
	rc := setupRunContext(t)

	sr, err := rc.Repos.SearchResults.Create(rc.UserID, "outlier_search", json.RawMessage(`{}`), []models.VideoItem{
		{ExternalID: "yt_abc", Title: "How to weld"},
	})
	require.NoError(t, err)

	input, _ := json.Marshal(map[string]string{
		"video_id":         "yt_abc",
		"title":            "Welding for beginners",
		"search_result_id": sr.ID,
	})
	raw, err := SaveIdea().Handler(context.Background(), rc, input)
	require.NoError(t, err)

	var output saveIdeaOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.NotZero(t, output.IdeaID)

	video, err := rc.Repos.Videos.GetByExternalID(rc.UserID, "yt_abc")
	require.NoError(t, err)
	assert.Equal(t, video.ID, output.VideoID)
}

type fakeCompletion struct {
	lastPrompt string
	response   string
}

func (f *fakeCompletion) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	f.lastPrompt = req.Prompt
	return f.response, nil
}

func TestIdeaBriefStoresBrief(t *testing.T) {
	rc := setupRunContext(t)
	fake := &fakeCompletion{response: "# Brief\n\nHook first."}
	rc.Completion = fake

	video, err := rc.Repos.Videos.UpsertFromItem(rc.UserID, models.VideoItem{
		ExternalID: "yt_abc", Title: "How to weld", ChannelTitle: "WeldShop",
	})
	require.NoError(t, err)
	require.NoError(t, rc.Repos.Videos.SetTranscript(video.ID, rc.UserID, "welcome back today we weld"))

	idea, err := rc.Repos.Ideas.CreateForExternalVideo(rc.UserID, "yt_abc", "Welding for beginners", "keep it short")
	require.NoError(t, err)

	input, _ := json.Marshal(map[string]interface{}{"idea_id": idea.ID, "tone": "energetic"})
	raw, err := IdeaBrief().Handler(context.Background(), rc, input)
	require.NoError(t, err)

	var output ideaBriefOutput
	require.NoError(t, json.Unmarshal(raw, &output))
	assert.Equal(t, "# Brief\n\nHook first.", output.Brief)

	assert.Contains(t, fake.lastPrompt, "Welding for beginners")
	assert.Contains(t, fake.lastPrompt, "WeldShop")
	assert.Contains(t, fake.lastPrompt, "energetic")
	assert.Contains(t, fake.lastPrompt, "welcome back")

	stored, err := rc.Repos.Ideas.GetByIDForUser(idea.ID, rc.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.Brief)
	assert.Equal(t, output.Brief, *stored.Brief)
}

func TestIdeaBriefHidesForeignIdeas(t *testing.T) {
	rc := setupRunContext(t)
	rc.Completion = &fakeCompletion{response: "brief"}

	other, err := rc.Repos.Users.Create("other", false, nil)
	require.NoError(t, err)
	_, err = rc.Repos.Videos.UpsertFromItem(other.ID, models.VideoItem{ExternalID: "yt_abc", Title: "How to weld"})
	require.NoError(t, err)
	idea, err := rc.Repos.Ideas.CreateForExternalVideo(other.ID, "yt_abc", "Theirs", "")
	require.NoError(t, err)

	input, _ := json.Marshal(map[string]interface{}{"idea_id": idea.ID})
	_, err = IdeaBrief().Handler(context.Background(), rc, input)
	require.Error(t, err)
}
