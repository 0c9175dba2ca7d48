package driving

import (
	"context"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

// Pipeline is the single end-to-end entry point: Session -> Collect ->
// optional Enrich -> optional Download, returning the best-effort case
// set plus every non-fatal warning. Fatal conditions (authentication,
// total pagination failure) surface as errors.
type Pipeline interface {
	Run(ctx context.Context, opts domain.RunOptions) (*domain.RunResult, error)
}

// SessionManager owns authentication and active-unit state.
type SessionManager interface {
	// EnsureReady drives the session state machine until the session
	// is authenticated on a known unit. Idempotent once ready.
	EnsureReady(ctx context.Context) (*ReadySession, error)

	// Reset drops session state after the portal signalled expiry.
	// The next EnsureReady re-authenticates; a second consecutive
	// expiry is fatal.
	Reset()

	// Warnings returns the non-fatal conditions recorded so far
	// (such as a failed unit switch).
	Warnings() []domain.Warning
}

// ReadySession is the known-good context downstream stages read under.
type ReadySession struct {
	// ActiveUnit is the unit the session ended up on. It equals the
	// desired unit unless the switch was degraded.
	ActiveUnit string

	// Degraded is true when the desired unit could not be activated
	// and the session continues on the prior unit.
	Degraded bool

	// Control is the parsed case-control page fetched while
	// reaching readiness; collection starts from it.
	Control *domain.Page
}

// Collector paginates both inbox categories and returns the merged,
// filtered, ordered case set.
type Collector interface {
	Collect(ctx context.Context, criteria domain.FilterCriteria, caps domain.PaginationCaps) (*CollectResult, error)
}

// CollectResult carries the case set before and after filtering so
// callers can persist the full set while acting on the filtered one.
type CollectResult struct {
	// All is the merged set before filtering, in insertion order.
	All []domain.Case

	// Filtered is the set after criteria and result cap.
	Filtered []domain.Case

	// Warnings lists per-category partial failures.
	Warnings []domain.Warning
}

// Enricher attaches document records to a bounded subset of cases.
// Cases are mutated in place; a per-case failure leaves that case's
// document list empty and is reported as a warning.
type Enricher interface {
	Enrich(ctx context.Context, cases []domain.Case, opts domain.EnrichOptions) []domain.Warning
}

// Downloader retrieves a rendered artifact per case with per-case
// retries, sequentially or via a bounded worker pool.
type Downloader interface {
	DownloadAll(ctx context.Context, cases []domain.Case, opts domain.DownloadOptions) (*domain.BatchReport, error)

	// DownloadOne retrieves a single case's artifact with one
	// attempt.
	DownloadOne(ctx context.Context, c *domain.Case, dir string) domain.DownloadOutcome
}

// SessionFactory constructs an independent portal adapter plus session
// manager pair. Parallel download workers use it so no two workers
// share mutable session state.
type SessionFactory interface {
	NewSession() (driven.PortalAdapter, SessionManager, error)
}
