package services

import (
	"context"
	"errors"
	"fmt"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/pkg/models"
)

// ReconciliationError means the lazy-backfill fallback could not source a
// replacement for a missing referenced row. It is distinct from the
// original missing-reference error so callers can tell the two apart.
type ReconciliationError struct {
	Stage string // "load_cache" or "scan_cache"
	Err   error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed (%s): %v", e.Stage, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// SaveIdeaParams describes one idea save. SearchResultID is only consulted
// when the referenced video has no durable row yet.
type SaveIdeaParams struct {
	VideoID        string // external video id
	Title          string
	Notes          string
	SearchResultID string
}

// Reconciler promotes ideas against videos that may only exist inside a
// cached search payload: optimistic write first, lazy backfill on a
// missing reference, then one retry.
type Reconciler struct {
	repos  *repositories.Repositories
	logger *logging.Logger
}

func NewReconciler(repos *repositories.Repositories, logger *logging.Logger) *Reconciler {
	return &Reconciler{repos: repos, logger: logger}
}

// SaveIdea attempts the idea insert assuming the video row exists. When the
// insert fails specifically because the reference is missing, the video is
// rebuilt from the caller's cached SearchResult and the insert retried once.
// Reconciliation never improvises data it cannot source: with no usable
// cache the original error surfaces and no rows are created.
func (r *Reconciler) SaveIdea(ctx context.Context, userID int64, params SaveIdeaParams) (*models.Idea, error) {
	idea, err := r.repos.Ideas.CreateForExternalVideo(userID, params.VideoID, params.Title, params.Notes)
	if err == nil {
		return idea, nil
	}
	if !errors.Is(err, repositories.ErrVideoNotFound) {
		return nil, err
	}

	if params.SearchResultID == "" {
		return nil, err
	}

	item, rerr := r.resolveFromCache(userID, params.SearchResultID, params.VideoID)
	if rerr != nil {
		return nil, rerr
	}

	if _, err := r.repos.Videos.UpsertFromItem(userID, *item); err != nil {
		return nil, fmt.Errorf("failed to backfill video %s: %w", params.VideoID, err)
	}
	r.logger.Debug("Backfilled video %s for user %d from search result %s", params.VideoID, userID, params.SearchResultID)

	// The retry's failure is the more recent, more specific signal.
	idea, err = r.repos.Ideas.CreateForExternalVideo(userID, params.VideoID, params.Title, params.Notes)
	if err != nil {
		return nil, fmt.Errorf("idea insert failed after backfill: %w", err)
	}
	return idea, nil
}

// resolveFromCache loads the caller's cached payload and linear-scans it
// for the item matching the dangling external id.
func (r *Reconciler) resolveFromCache(userID int64, searchResultID, externalID string) (*models.VideoItem, error) {
	cached, err := r.repos.SearchResults.GetByIDForUser(searchResultID, userID)
	if err != nil {
		return nil, &ReconciliationError{Stage: "load_cache", Err: fmt.Errorf("search result %s: %w", searchResultID, err)}
	}

	for i := range cached.Results {
		if cached.Results[i].ExternalID == externalID {
			return &cached.Results[i], nil
		}
	}

	return nil, &ReconciliationError{
		Stage: "scan_cache",
		Err:   fmt.Errorf("search result %s has no item with external id %s", searchResultID, externalID),
	}
}
