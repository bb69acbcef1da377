// Package storage defines the persistence interface for evaluation runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Storage defines run, per-query outcome and per-query score persistence.
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Batch operations. Rows keep the order they were given in.
	BatchCreateOutcomes(ctx context.Context, runID string, outcomes []models.QueryOutcome) error
	GetOutcomes(ctx context.Context, runID string) ([]models.QueryOutcome, error)
	BatchCreateQueryScores(ctx context.Context, runID string, scores []metrics.QueryScore) error
	GetQueryScores(ctx context.Context, runID string) ([]metrics.QueryScore, error)

	// Stats
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
