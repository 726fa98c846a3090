package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TranscriptClient fetches transcripts for external video ids.
type TranscriptClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewTranscriptClient(baseURL, apiKey string) *TranscriptClient {
	return &TranscriptClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// TranscriptSegment is one timed span of transcript text.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Transcript is a fetched transcript for one video.
type Transcript struct {
	VideoID  string              `json:"video_id"`
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
}

// Text joins the segments into one plain-text transcript.
func (t *Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// Fetch retrieves the transcript of one external video id.
func (c *TranscriptClient) Fetch(ctx context.Context, externalVideoID, language string) (*Transcript, error) {
	query := url.Values{"video_id": {externalVideoID}}
	if language != "" {
		query.Set("lang", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transcript?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no transcript available for video %s", externalVideoID)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcript service returned %d: %s", resp.StatusCode, payload)
	}

	var transcript Transcript
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript response: %w", err)
	}
	if transcript.VideoID == "" {
		transcript.VideoID = externalVideoID
	}

	return &transcript, nil
}
