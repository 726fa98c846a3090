package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"greenroom/internal/tools"
)

const transcribeVideoSchema = `{
	"type": "object",
	"properties": {
		"video_id": {"type": "string", "minLength": 1},
		"language": {"type": "string", "minLength": 2, "maxLength": 8}
	},
	"required": ["video_id"],
	"additionalProperties": false
}`

type transcribeVideoInput struct {
	VideoID  string `json:"video_id"`
	Language string `json:"language,omitempty"`
}

type transcribeVideoOutput struct {
	VideoID      string `json:"video_id"`
	SegmentCount int    `json:"segment_count"`
	Language     string `json:"language"`
}

// TranscribeVideo fetches one video's transcript and stores it on the
// caller's video row. Runs on the generic pool: transcripts are slow to
// fetch but have no search-quota contention.
func TranscribeVideo() *tools.Tool {
	return &tools.Tool{
		Name:        "transcribe_video",
		Version:     "1.1.0",
		Description: "Fetch the transcript of a saved video and store it for later analysis",
		InputSchema: json.RawMessage(transcribeVideoSchema),
		Async:       true,
		Pool:        tools.PoolGeneric,
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input transcribeVideoInput) (transcribeVideoOutput, error) {
			video, err := rc.Repos.Videos.GetByExternalID(rc.UserID, input.VideoID)
			if err != nil {
				return transcribeVideoOutput{}, fmt.Errorf("video %s is not saved: %w", input.VideoID, err)
			}

			transcript, err := rc.Transcripts.Fetch(ctx, input.VideoID, input.Language)
			if err != nil {
				return transcribeVideoOutput{}, err
			}

			if err := rc.Repos.Videos.SetTranscript(video.ID, rc.UserID, transcript.Text()); err != nil {
				return transcribeVideoOutput{}, fmt.Errorf("failed to store transcript for video %s: %w", input.VideoID, err)
			}

			return transcribeVideoOutput{
				VideoID:      input.VideoID,
				SegmentCount: len(transcript.Segments),
				Language:     transcript.Language,
			}, nil
		}),
	}
}

const fetchTranscriptsSchema = `{
	"type": "object",
	"properties": {
		"video_ids": {
			"type": "array",
			"items": {"type": "string", "minLength": 1},
			"minItems": 1
		},
		"language": {"type": "string", "minLength": 2, "maxLength": 8}
	},
	"required": ["video_ids"],
	"additionalProperties": false
}`

type fetchTranscriptsInput struct {
	VideoIDs []string `json:"video_ids"`
	Language string   `json:"language,omitempty"`
}

type fetchedTranscript struct {
	VideoID      string `json:"video_id"`
	SegmentCount int    `json:"segment_count"`
	Stored       bool   `json:"stored"`
}

type fetchTranscriptsOutput struct {
	Transcripts []fetchedTranscript `json:"transcripts"`
	Warnings    []string            `json:"warnings,omitempty"`
	Truncated   int                 `json:"truncated,omitempty"`
}

// FetchTranscripts fetches transcripts for a batch of videos with bounded
// concurrency. One unavailable transcript degrades the batch, it does not
// fail it; only a batch with zero successes errors.
func FetchTranscripts() *tools.Tool {
	return &tools.Tool{
		Name:        "fetch_transcripts",
		Version:     "1.0.0",
		Description: "Fetch transcripts for several videos at once, storing them on saved videos",
		InputSchema: json.RawMessage(fetchTranscriptsSchema),
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input fetchTranscriptsInput) (fetchTranscriptsOutput, error) {
			outcome, err := tools.FanOut(ctx, input.VideoIDs, rc.BatchMaxItems, rc.BatchConcurrency,
				func(ctx context.Context, videoID string) (fetchedTranscript, error) {
					transcript, err := rc.Transcripts.Fetch(ctx, videoID, input.Language)
					if err != nil {
						return fetchedTranscript{}, err
					}

					// Persist onto the saved video when one exists; a
					// transcript for an unsaved video is still a success.
					stored := false
					if video, verr := rc.Repos.Videos.GetByExternalID(rc.UserID, videoID); verr == nil {
						if serr := rc.Repos.Videos.SetTranscript(video.ID, rc.UserID, transcript.Text()); serr == nil {
							stored = true
						} else {
							rc.Logger.Error("Failed to store transcript for video %s: %v", videoID, serr)
						}
					}

					return fetchedTranscript{
						VideoID:      videoID,
						SegmentCount: len(transcript.Segments),
						Stored:       stored,
					}, nil
				})
			if err != nil {
				return fetchTranscriptsOutput{}, err
			}

			output := fetchTranscriptsOutput{
				Transcripts: make([]fetchedTranscript, 0, len(outcome.Succeeded)),
				Warnings:    outcome.Warnings(),
				Truncated:   outcome.Truncated,
			}
			for _, s := range outcome.Succeeded {
				output.Transcripts = append(output.Transcripts, s.Result)
			}
			return output, nil
		}),
	}
}
