package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/storage"
)

// JanitorConfig controls the background maintenance schedules.
type JanitorConfig struct {
	// SearchResultRetentionDays is how long cached search payloads live
	// before the sweep removes them.
	SearchResultRetentionDays int

	// StaleRunningMinutes is the age past which a running job is reported
	// as likely orphaned by a crashed worker.
	StaleRunningMinutes int

	// ArtifactRetention is how long generated artifacts live before the
	// sweep removes them. Zero disables the artifact sweep.
	ArtifactRetention time.Duration
}

func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		SearchResultRetentionDays: 7,
		StaleRunningMinutes:       60,
		ArtifactRetention:         30 * 24 * time.Hour,
	}
}

// Janitor runs the periodic maintenance: sweeping expired search-result
// caches, reporting jobs stuck in a running status, and expiring old
// artifacts. It reports stale jobs rather than resetting them so an
// operator decides whether a slow job is dead.
type Janitor struct {
	cfg       JanitorConfig
	repos     *repositories.Repositories
	artifacts storage.ArtifactStore
	logger    *logging.Logger
	cron      *cron.Cron
}

func NewJanitor(cfg JanitorConfig, repos *repositories.Repositories, artifacts storage.ArtifactStore, logger *logging.Logger) *Janitor {
	return &Janitor{
		cfg:       cfg,
		repos:     repos,
		artifacts: artifacts,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start registers the schedules and starts the cron runner.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.sweepSearchResults); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@every 10m", j.reportStaleJobs); err != nil {
		return err
	}
	if j.artifacts != nil && j.cfg.ArtifactRetention > 0 {
		if _, err := j.cron.AddFunc("@daily", j.sweepArtifacts); err != nil {
			return err
		}
	}

	j.cron.Start()
	j.logger.Info("Janitor started (search retention %dd, stale threshold %dm)",
		j.cfg.SearchResultRetentionDays, j.cfg.StaleRunningMinutes)
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("Janitor stopped")
}

func (j *Janitor) sweepSearchResults() {
	deleted, err := j.repos.SearchResults.DeleteOlderThan(j.cfg.SearchResultRetentionDays)
	if err != nil {
		j.logger.Error("Search result sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("Swept %d expired search results", deleted)
	}
}

func (j *Janitor) reportStaleJobs() {
	stale, err := j.repos.Jobs.ListStaleRunning(j.cfg.StaleRunningMinutes)
	if err != nil {
		j.logger.Error("Stale job scan failed: %v", err)
		return
	}
	for _, job := range stale {
		j.logger.Error("Job %s (%s) has been %s for over %d minutes; a worker may have died",
			job.ID, job.Type, job.Status, j.cfg.StaleRunningMinutes)
	}
}

func (j *Janitor) sweepArtifacts() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	infos, err := j.artifacts.List(ctx, "")
	if err != nil {
		j.logger.Error("Artifact sweep listing failed: %v", err)
		return
	}

	cutoff := time.Now().Add(-j.cfg.ArtifactRetention)
	var deleted int
	for _, info := range infos {
		if info.CreatedAt.IsZero() || !info.CreatedAt.Before(cutoff) {
			continue
		}
		if err := j.artifacts.Delete(ctx, info.Key); err != nil {
			j.logger.Error("Failed to delete expired artifact %s: %v", info.Key, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		j.logger.Info("Swept %d expired artifacts", deleted)
	}
}
