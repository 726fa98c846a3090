// Package catalog declares the built-in tools and wires them into a
// registry at startup. Each tool lives in its own file with its schema;
// handlers are statically typed and adapted at the registry boundary.
package catalog

import (
	"greenroom/internal/tools"
)

// Register wires the full built-in catalog into the given registry. The
// catalog is fixed at startup; a duplicate name here is a programming error.
func Register(registry *tools.Registry) {
	registry.MustRegister(OutlierSearch())
	registry.MustRegister(ChannelAnalyze())
	registry.MustRegister(TranscribeVideo())
	registry.MustRegister(FetchTranscripts())
	registry.MustRegister(GenerateThumbnails())
	registry.MustRegister(SaveIdea())
	registry.MustRegister(IdeaBrief())
}
