package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"greenroom/internal/provider"
	"greenroom/internal/services"
	"greenroom/internal/tools"
)

const saveIdeaSchema = `{
	"type": "object",
	"properties": {
		"video_id": {"type": "string", "minLength": 1},
		"title": {"type": "string", "minLength": 1, "maxLength": 300},
		"notes": {"type": "string", "maxLength": 10000},
		"search_result_id": {"type": "string"}
	},
	"required": ["video_id", "title"],
	"additionalProperties": false
}`

type saveIdeaInput struct {
	VideoID        string `json:"video_id"`
	Title          string `json:"title"`
	Notes          string `json:"notes,omitempty"`
	SearchResultID string `json:"search_result_id,omitempty"`
}

type saveIdeaOutput struct {
	IdeaID  int64  `json:"idea_id"`
	VideoID int64  `json:"video_id"`
	Title   string `json:"title"`
}

// SaveIdea records a content idea against a researched video. The video may
// only exist inside a cached search payload at save time; the reconciler
// backfills the durable row from the cache when the caller names one.
func SaveIdea() *tools.Tool {
	return &tools.Tool{
		Name:        "save_idea",
		Version:     "1.1.0",
		Description: "Save a content idea referencing a researched video",
		InputSchema: json.RawMessage(saveIdeaSchema),
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input saveIdeaInput) (saveIdeaOutput, error) {
			reconciler := services.NewReconciler(rc.Repos, rc.Logger)
			idea, err := reconciler.SaveIdea(ctx, rc.UserID, services.SaveIdeaParams{
				VideoID:        input.VideoID,
				Title:          input.Title,
				Notes:          input.Notes,
				SearchResultID: input.SearchResultID,
			})
			if err != nil {
				return saveIdeaOutput{}, err
			}

			return saveIdeaOutput{IdeaID: idea.ID, VideoID: idea.VideoID, Title: idea.Title}, nil
		}),
	}
}

const ideaBriefSchema = `{
	"type": "object",
	"properties": {
		"idea_id": {"type": "integer", "minimum": 1},
		"tone": {"type": "string", "enum": ["casual", "professional", "energetic"]}
	},
	"required": ["idea_id"],
	"additionalProperties": false
}`

type ideaBriefInput struct {
	IdeaID int64  `json:"idea_id"`
	Tone   string `json:"tone,omitempty"`
}

type ideaBriefOutput struct {
	IdeaID int64  `json:"idea_id"`
	Brief  string `json:"brief"`
}

const briefSystemPrompt = "You write production briefs for video creators. " +
	"Produce a concise markdown brief with a hook, an outline of 3-5 beats, " +
	"and a closing call to action. Stay grounded in the source material."

// IdeaBrief generates a production brief for a saved idea and stores it on
// the idea row. Provider-agnostic through the completion client.
func IdeaBrief() *tools.Tool {
	return &tools.Tool{
		Name:        "idea_brief",
		Version:     "1.0.0",
		Description: "Generate a markdown production brief for a saved idea",
		InputSchema: json.RawMessage(ideaBriefSchema),
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input ideaBriefInput) (ideaBriefOutput, error) {
			if rc.Completion == nil {
				return ideaBriefOutput{}, fmt.Errorf("no AI provider is configured (set ai_provider and ai_api_key)")
			}

			idea, err := rc.Repos.Ideas.GetByIDForUser(input.IdeaID, rc.UserID)
			if err != nil {
				return ideaBriefOutput{}, fmt.Errorf("idea %d: %w", input.IdeaID, err)
			}

			video, err := rc.Repos.Videos.GetByIDForUser(idea.VideoID, rc.UserID)
			if err != nil {
				return ideaBriefOutput{}, fmt.Errorf("video %d for idea %d: %w", idea.VideoID, input.IdeaID, err)
			}

			prompt := buildBriefPrompt(idea.Title, idea.Notes, video.Title, video.ChannelTitle, video.Transcript, input.Tone)

			brief, err := rc.Completion.Complete(ctx, provider.CompletionRequest{
				System:    briefSystemPrompt,
				Prompt:    prompt,
				MaxTokens: 1024,
			})
			if err != nil {
				return ideaBriefOutput{}, fmt.Errorf("brief generation failed: %w", err)
			}

			if err := rc.Repos.Ideas.SetBrief(idea.ID, rc.UserID, brief); err != nil {
				return ideaBriefOutput{}, fmt.Errorf("failed to store brief for idea %d: %w", idea.ID, err)
			}

			return ideaBriefOutput{IdeaID: idea.ID, Brief: brief}, nil
		}),
	}
}

func buildBriefPrompt(ideaTitle, notes, videoTitle, channelTitle string, transcript *string, tone string) string {
	if tone == "" {
		tone = "casual"
	}

	prompt := fmt.Sprintf("Idea: %s\nInspired by: %q by %s\nTone: %s\n", ideaTitle, videoTitle, channelTitle, tone)
	if notes != "" {
		prompt += "Creator notes: " + notes + "\n"
	}
	if transcript != nil && *transcript != "" {
		excerpt := *transcript
		// Keep prompts bounded; the opening of a transcript carries the hook.
		const maxExcerpt = 4000
		if len(excerpt) > maxExcerpt {
			excerpt = excerpt[:maxExcerpt]
		}
		prompt += "Source transcript excerpt:\n" + excerpt + "\n"
	}
	return prompt
}
