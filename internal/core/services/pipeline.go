package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Pipeline = (*Pipeline)(nil)

// Pipeline composes the stages in fixed order: Session -> Collect ->
// optional Enrich -> optional Download. Control flow is strictly
// top-down; warnings flow back as structured data.
type Pipeline struct {
	session    driving.SessionManager
	collector  driving.Collector
	enricher   driving.Enricher
	downloader driving.Downloader
	history    driven.HistoryStore
}

// NewPipeline creates the facade. history may be nil when persistence
// is disabled.
func NewPipeline(
	session driving.SessionManager,
	collector driving.Collector,
	enricher driving.Enricher,
	downloader driving.Downloader,
	history driven.HistoryStore,
) *Pipeline {
	return &Pipeline{
		session:    session,
		collector:  collector,
		enricher:   enricher,
		downloader: downloader,
		history:    history,
	}
}

// Run executes the end-to-end pipeline and returns the best-effort
// result set with every non-fatal condition attached. Fatal errors
// (authentication, total pagination failure) stop the run.
func (p *Pipeline) Run(ctx context.Context, opts domain.RunOptions) (*domain.RunResult, error) {
	start := time.Now()

	logger.Section("Session")
	ready, err := p.session.EnsureReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	logger.Section("Collect")
	collected, err := p.collector.Collect(ctx, opts.Criteria, opts.Pagination)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	warnings := append([]domain.Warning{}, p.session.Warnings()...)
	warnings = append(warnings, collected.Warnings...)
	cases := collected.Filtered

	if opts.Enrich.Enabled {
		logger.Section("Enrich")
		warnings = append(warnings, p.enricher.Enrich(ctx, cases, opts.Enrich)...)
	}

	var report *domain.BatchReport
	if opts.Download.Enabled {
		logger.Section("Download")
		report, err = p.downloader.DownloadAll(ctx, cases, opts.Download)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		for _, outcome := range report.Outcomes {
			if !outcome.Succeeded {
				warnings = append(warnings, domain.Warning{
					Stage:      domain.StageDownload,
					CaseNumber: outcome.CaseNumber,
					Message:    outcome.Reason,
				})
			}
		}
	}

	result := &domain.RunResult{
		Unit:     ready.ActiveUnit,
		Cases:    cases,
		AllCases: collected.All,
		Warnings: warnings,
		Report:   report,
		Elapsed:  time.Since(start),
	}

	if opts.PersistHistory && p.history != nil {
		record := &domain.RunRecord{
			ID:        uuid.NewString(),
			CreatedAt: time.Now(),
			Unit:      ready.ActiveUnit,
			Cases:     cases,
			Report:    report,
		}
		if err := p.history.SaveRun(ctx, record); err != nil {
			// Persistence is best effort; the run itself succeeded.
			logger.Warn("Saving run history failed: %v", err)
			result.Warnings = append(result.Warnings, domain.Warning{
				Stage:   domain.StageCollect,
				Message: fmt.Sprintf("history not saved: %v", err),
			})
		} else {
			logger.Info("Run %s saved to history", record.ID)
		}
	}

	return result, nil
}
