package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure Downloader implements the interface.
var _ driving.Downloader = (*Downloader)(nil)

const (
	// retryDelay is the base backoff between attempts; it grows
	// linearly with the attempt number, capped at maxRetryDelay.
	retryDelay    = 2 * time.Second
	maxRetryDelay = 10 * time.Second

	// interCasePause spaces sequential downloads out so the portal
	// is not hammered.
	interCasePause = time.Second

	// maxArtifactSize rejects runaway renders.
	maxArtifactSize = 100 << 20
)

// Downloader retrieves rendered case artifacts. Retries stay within a
// single case's attempt loop; one case's permanent failure never
// aborts the batch.
type Downloader struct {
	adapter driven.PortalAdapter
	session driving.SessionManager
	factory driving.SessionFactory

	// sleep is injectable for tests.
	sleep func(time.Duration)
}

// NewDownloader creates a downloader using the shared session for
// sequential mode. factory may be nil, which disables parallel mode.
func NewDownloader(adapter driven.PortalAdapter, session driving.SessionManager, factory driving.SessionFactory) *Downloader {
	return &Downloader{
		adapter: adapter,
		session: session,
		factory: factory,
		sleep:   time.Sleep,
	}
}

// DownloadAll retrieves one artifact per case, sequentially or through
// a bounded worker pool, and returns the batch report.
func (d *Downloader) DownloadAll(ctx context.Context, cases []domain.Case, opts domain.DownloadOptions) (*domain.BatchReport, error) {
	targets := cases
	if opts.Limit > 0 && opts.Limit < len(targets) {
		targets = targets[:opts.Limit]
	}

	report := &domain.BatchReport{}
	if len(targets) == 0 {
		logger.Warn("No cases to download")
		return report, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}

	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}

	start := time.Now()
	if opts.Parallel && d.factory != nil && opts.Workers > 1 {
		logger.Info("Downloading %d case(s) with %d workers", len(targets), opts.Workers)
		d.downloadParallel(ctx, targets, dir, retries, opts.Workers, report)
	} else {
		logger.Info("Downloading %d case(s) sequentially", len(targets))
		for i := range targets {
			outcome := d.downloadCase(ctx, d.adapter, d.session, &targets[i], dir, retries)
			report.Add(outcome)
			if i < len(targets)-1 {
				d.sleep(interCasePause)
			}
		}
	}
	report.Elapsed = time.Since(start)

	logger.Info("Batch finished: %d succeeded, %d failed in %s", report.Succeeded, report.Failed, report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// DownloadOne retrieves a single case's artifact with one attempt over
// the shared session.
func (d *Downloader) DownloadOne(ctx context.Context, c *domain.Case, dir string) domain.DownloadOutcome {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.DownloadOutcome{CaseNumber: c.Number, Attempts: 1, Reason: err.Error()}
	}
	return d.downloadCase(ctx, d.adapter, d.session, c, dir, 1)
}

// downloadParallel partitions the cases across workers. Every worker
// owns an independent adapter+session pair so no session state is
// shared; only the report aggregation is, behind a mutex.
func (d *Downloader) downloadParallel(ctx context.Context, targets []domain.Case, dir string, retries, workers int, report *domain.BatchReport) {
	jobs := make(chan int)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			adapter, session, err := d.factory.NewSession()
			if err != nil {
				for idx := range jobs {
					mu.Lock()
					report.Add(domain.DownloadOutcome{
						CaseNumber: targets[idx].Number,
						Reason:     fmt.Sprintf("worker session: %v", err),
					})
					mu.Unlock()
				}
				return
			}
			defer adapter.Close()

			for idx := range jobs {
				outcome := d.downloadCase(ctx, adapter, session, &targets[idx], dir, retries)
				mu.Lock()
				report.Add(outcome)
				mu.Unlock()
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// downloadCase runs the per-case attempt loop. Each attempt issues
// fresh requests over the same authenticated session; an expiry signal
// resets the session so the next attempt re-authenticates.
func (d *Downloader) downloadCase(ctx context.Context, adapter driven.PortalAdapter, session driving.SessionManager, c *domain.Case, dir string, retries int) domain.DownloadOutcome {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= retries; attempt++ {
		logger.Info("[PDF] (%d/%d) %s", attempt, retries, c.Number)

		path, size, err := d.attempt(ctx, adapter, session, c, dir)
		if err == nil {
			return domain.DownloadOutcome{
				CaseNumber: c.Number,
				Succeeded:  true,
				Path:       path,
				Size:       size,
				Attempts:   attempt,
				Duration:   time.Since(start),
			}
		}

		lastErr = err
		logger.Warn("[PDF] attempt %d/%d failed for %s: %v", attempt, retries, c.Number, err)
		if errors.Is(err, domain.ErrSessionExpired) {
			session.Reset()
		}
		if attempt < retries {
			d.sleep(backoff(attempt))
		}
	}

	return domain.DownloadOutcome{
		CaseNumber: c.Number,
		Attempts:   retries,
		Duration:   time.Since(start),
		Reason:     lastErr.Error(),
	}
}

// attempt walks the artifact flow once: case page -> document tree ->
// generation link -> options form -> download URL -> binary.
func (d *Downloader) attempt(ctx context.Context, adapter driven.PortalAdapter, session driving.SessionManager, c *domain.Case, dir string) (string, int64, error) {
	if _, err := session.EnsureReady(ctx); err != nil {
		return "", 0, err
	}

	casePage, err := adapter.Fetch(ctx, c.URL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("open case page: %w", err)
	}
	if casePage.TreeSrc == "" {
		return "", 0, fmt.Errorf("document tree frame not found")
	}

	tree, err := adapter.Fetch(ctx, casePage.TreeSrc, nil)
	if err != nil {
		return "", 0, fmt.Errorf("load document tree: %w", err)
	}
	if tree.PDFLink == "" {
		return "", 0, fmt.Errorf("%w: generation link missing from tree", domain.ErrNoDownloadLink)
	}

	options, err := adapter.Fetch(ctx, tree.PDFLink, nil)
	if err != nil {
		return "", 0, fmt.Errorf("open generation options: %w", err)
	}

	form := pickGenerationForm(options)
	if form == nil {
		return "", 0, fmt.Errorf("%w: generation form missing", domain.ErrNoDownloadLink)
	}

	fields := map[string]string{driven.PDFFieldGenerate: driven.PDFGenerateOn}
	if form.Field(driven.PDFFieldType) == "" {
		fields[driven.PDFFieldType] = driven.PDFTypeAll
	}
	if form.Field(driven.PDFFieldSubmit) == "" {
		fields[driven.PDFFieldSubmit] = driven.PDFSubmitLabel
	}

	result, err := adapter.SubmitForm(ctx, *form, fields)
	if err != nil {
		return "", 0, fmt.Errorf("submit generation form: %w", err)
	}
	if result.DownloadURL == "" {
		if result.Alert != "" {
			return "", 0, fmt.Errorf("%w: portal said: %s", domain.ErrNoDownloadLink, result.Alert)
		}
		return "", 0, domain.ErrNoDownloadLink
	}

	body, contentType, err := adapter.FetchBinary(ctx, result.DownloadURL)
	if err != nil {
		return "", 0, fmt.Errorf("download artifact: %w", err)
	}
	if len(body) == 0 {
		return "", 0, domain.ErrEmptyArtifact
	}
	if len(body) > maxArtifactSize {
		return "", 0, fmt.Errorf("artifact too large: %d bytes", len(body))
	}
	if !strings.Contains(strings.ToLower(contentType), "pdf") {
		return "", 0, fmt.Errorf("%w: got %q", domain.ErrNotPDF, contentType)
	}

	path := filepath.Join(dir, ArtifactFilename(c.Number))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", 0, fmt.Errorf("write artifact: %w", err)
	}

	logger.Info("[PDF] saved %s (%.1f KB)", path, float64(len(body))/1024)
	return path, int64(len(body)), nil
}

// pickGenerationForm finds the artifact-generation form: by action,
// then by submit button, then the first form on the page.
func pickGenerationForm(page *domain.Page) *domain.Form {
	for i := range page.Forms {
		if strings.Contains(page.Forms[i].Action, "procedimento_gerar_pdf") {
			return &page.Forms[i]
		}
	}
	for i := range page.Forms {
		if _, ok := page.Forms[i].Fields[driven.PDFFieldSubmit]; ok {
			return &page.Forms[i]
		}
	}
	if len(page.Forms) > 0 {
		return &page.Forms[0]
	}
	return nil
}

// ArtifactFilename derives the deterministic artifact name for a case.
func ArtifactFilename(number string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, number)
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "artifact"
	}
	return "processo_" + safe + ".pdf"
}

func backoff(attempt int) time.Duration {
	delay := retryDelay * time.Duration(attempt)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
