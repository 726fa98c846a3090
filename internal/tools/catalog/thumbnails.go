package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"greenroom/internal/clients"
	"greenroom/internal/storage"
	"greenroom/internal/tools"
)

// maxThumbnailsPerCall bounds one generation call regardless of the batch
// cap; each image is an expensive upstream render.
const maxThumbnailsPerCall = 4

const generateThumbnailsSchema = `{
	"type": "object",
	"properties": {
		"reference_url": {"type": "string", "minLength": 1},
		"prompt": {"type": "string", "minLength": 1, "maxLength": 2000},
		"count": {"type": "integer", "minimum": 1, "maximum": 4}
	},
	"required": ["reference_url", "prompt"],
	"additionalProperties": false
}`

type generateThumbnailsInput struct {
	ReferenceURL string `json:"reference_url"`
	Prompt       string `json:"prompt"`
	Count        int    `json:"count,omitempty"`
}

type generatedThumbnail struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

type generateThumbnailsOutput struct {
	Thumbnails []generatedThumbnail `json:"thumbnails"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// GenerateThumbnails renders thumbnail variants from a reference image and
// stores the PNGs in the artifact store. The reference URL is screened
// before any upstream call so the image service is never pointed at
// private or loopback hosts.
func GenerateThumbnails() *tools.Tool {
	return &tools.Tool{
		Name:        "generate_thumbnails",
		Version:     "1.0.0",
		Description: "Generate thumbnail variants from a reference image and a style prompt",
		InputSchema: json.RawMessage(generateThumbnailsSchema),
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input generateThumbnailsInput) (generateThumbnailsOutput, error) {
			if err := clients.ValidateReferenceURL(input.ReferenceURL); err != nil {
				return generateThumbnailsOutput{}, err
			}

			count := input.Count
			if count <= 0 {
				count = 1
			}

			variants := make([]int, count)
			for i := range variants {
				variants[i] = i + 1
			}

			outcome, err := tools.FanOut(ctx, variants, maxThumbnailsPerCall, rc.BatchConcurrency,
				func(ctx context.Context, variant int) (generatedThumbnail, error) {
					image, err := rc.Images.Generate(ctx, input.ReferenceURL, input.Prompt)
					if err != nil {
						return generatedThumbnail{}, fmt.Errorf("variant %d: %w", variant, err)
					}

					key := storage.GenerateThumbnailKey(rc.UserID)
					info, err := rc.Artifacts.Put(ctx, key, bytes.NewReader(image), storage.PutOptions{
						ContentType: "image/png",
					})
					if err != nil {
						return generatedThumbnail{}, fmt.Errorf("variant %d: failed to store artifact: %w", variant, err)
					}

					return generatedThumbnail{Key: info.Key, Size: info.Size}, nil
				})
			if err != nil {
				return generateThumbnailsOutput{}, err
			}

			output := generateThumbnailsOutput{
				Thumbnails: make([]generatedThumbnail, 0, len(outcome.Succeeded)),
				Warnings:   outcome.Warnings(),
			}
			for _, s := range outcome.Succeeded {
				output.Thumbnails = append(output.Thumbnails, s.Result)
			}
			return output, nil
		}),
	}
}
