package driven

import (
	"context"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

// HistoryStore persists pipeline runs for later inspection.
type HistoryStore interface {
	// SaveRun stores a finished run with its case set and report.
	SaveRun(ctx context.Context, run *domain.RunRecord) error

	// GetRun retrieves a run by ID.
	// Returns domain.ErrNotFound when it does not exist.
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)

	// ListRuns returns stored runs, most recent first.
	ListRuns(ctx context.Context) ([]domain.RunRecord, error)

	// Close releases store resources.
	Close() error
}
