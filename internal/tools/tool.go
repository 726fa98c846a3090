// Package tools holds the registry of versioned, schema-validated
// operations and the primitives their handlers share: the run context,
// typed handler adapters, and the batch fan-out executor.
package tools

import (
	"context"
	"encoding/json"

	"greenroom/internal/clients"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/provider"
	"greenroom/internal/storage"
	"greenroom/pkg/models"
)

// Pool names the worker pool that consumes a tool's async jobs.
type Pool string

const (
	PoolGeneric Pool = "generic"
	PoolSearch  Pool = "search"
)

// InitialJobStatus returns the queued status owned by this pool.
func (p Pool) InitialJobStatus() string {
	if p == PoolSearch {
		return models.JobStatusSearchQueued
	}
	return models.JobStatusQueued
}

// RunningJobStatus returns the running status owned by this pool.
func (p Pool) RunningJobStatus() string {
	if p == PoolSearch {
		return models.JobStatusSearchRunning
	}
	return models.JobStatusRunning
}

// Handler executes a tool against validated input. Input has already passed
// the tool's schema by the time a handler sees it.
type Handler func(ctx context.Context, rc *RunContext, input json.RawMessage) (json.RawMessage, error)

// Tool is one registered operation. Immutable after registration; handlers
// are swapped only while wiring the registry at startup.
type Tool struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	Handler      Handler         `json:"-"`

	// Async tools are persisted as jobs instead of running in the request
	// path. Pool affinity decides the job's initial status namespace.
	Async bool `json:"async"`
	Pool  Pool `json:"pool,omitempty"`

	// Pollable tools appear in the default active-jobs view. Everything
	// else only shows up when the caller filters by type explicitly.
	Pollable bool `json:"pollable"`
}

// RunContext carries the caller identity and the injected collaborators a
// handler may touch. Handlers never reach into ambient state for these.
type RunContext struct {
	UserID int64

	Repos       *repositories.Repositories
	Artifacts   storage.ArtifactStore
	Completion  provider.CompletionClient
	Search      *clients.SearchClient
	Transcripts *clients.TranscriptClient
	Images      *clients.ImageClient
	Logger      *logging.Logger

	// Fan-out tuning for batch tools, from configuration.
	BatchMaxItems    int
	BatchConcurrency int
}

// Typed adapts a statically typed handler to the registry's type-erased
// boundary. Each tool's input and output types stay known to its own
// handler; only the envelope is json.RawMessage.
func Typed[I any, O any](fn func(ctx context.Context, rc *RunContext, input I) (O, error)) Handler {
	return func(ctx context.Context, rc *RunContext, raw json.RawMessage) (json.RawMessage, error) {
		var input I
		if err := json.Unmarshal(raw, &input); err != nil {
			return nil, err
		}

		output, err := fn(ctx, rc, input)
		if err != nil {
			return nil, err
		}

		return json.Marshal(output)
	}
}
