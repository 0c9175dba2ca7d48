package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure Enricher implements the interface.
var _ driving.Enricher = (*Enricher)(nil)

// Enricher attaches each case's document subtree. Failures are
// per-case: the case keeps an empty document list and enrichment moves
// on.
type Enricher struct {
	adapter driven.PortalAdapter
	session driving.SessionManager
	debug   driven.DebugSink
}

// NewEnricher creates an enricher. debug may be nil when raw-markup
// dumps are disabled.
func NewEnricher(adapter driven.PortalAdapter, session driving.SessionManager, debug driven.DebugSink) *Enricher {
	return &Enricher{adapter: adapter, session: session, debug: debug}
}

// Enrich processes at most opts.Limit cases in input order, replacing
// each selected case's document list with a fresh subtree parse.
func (e *Enricher) Enrich(ctx context.Context, cases []domain.Case, opts domain.EnrichOptions) []domain.Warning {
	if !opts.Enabled || len(cases) == 0 {
		return nil
	}

	limit := len(cases)
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}
	logger.Info("Enriching %d case(s) with documents", limit)

	var warnings []domain.Warning
	dumps := 0

	for i := 0; i < limit; i++ {
		c := &cases[i]

		tree, err := e.fetchTree(ctx, c)
		if err != nil {
			c.Documents = nil
			warnings = append(warnings, domain.Warning{
				Stage:      domain.StageEnrich,
				CaseNumber: c.Number,
				Message:    err.Error(),
			})
			logger.Warn("Enrichment failed for %s: %v", c.Number, err)
			continue
		}

		// Raw markup dump is independent of parse success.
		if opts.DumpHTML && e.debug != nil {
			if opts.DumpLimit == 0 || dumps < opts.DumpLimit {
				name := fmt.Sprintf("%03d_%s", i+1, safeName(c.Number))
				if dumpErr := e.debug.Dump(name, tree.RawHTML); dumpErr != nil {
					logger.Warn("Dump failed for %s: %v", c.Number, dumpErr)
				} else {
					dumps++
				}
			}
		}

		// Full subtree refresh: replace, never merge.
		c.Documents = tree.Documents
		if len(tree.CaseSigners) > 0 {
			c.Signers = tree.CaseSigners
		}
		if tree.CaseConfidential {
			c.Confidential = true
		}
		logger.Debug("Case %s: %d document(s)", c.Number, len(c.Documents))
	}

	return warnings
}

// fetchTree opens the case page, follows the document-tree frame and
// returns the parsed tree page. One transparent re-login is attempted
// when the portal signals session expiry.
func (e *Enricher) fetchTree(ctx context.Context, c *domain.Case) (*domain.Page, error) {
	tree, err := e.fetchTreeOnce(ctx, c)
	if err != nil && errors.Is(err, domain.ErrSessionExpired) {
		e.session.Reset()
		if _, readyErr := e.session.EnsureReady(ctx); readyErr != nil {
			return nil, readyErr
		}
		return e.fetchTreeOnce(ctx, c)
	}
	return tree, err
}

func (e *Enricher) fetchTreeOnce(ctx context.Context, c *domain.Case) (*domain.Page, error) {
	casePage, err := e.adapter.Fetch(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("open case page: %w", err)
	}
	if casePage.TreeSrc == "" {
		return nil, fmt.Errorf("document tree frame not found")
	}
	tree, err := e.adapter.Fetch(ctx, casePage.TreeSrc, nil)
	if err != nil {
		return nil, fmt.Errorf("load document tree: %w", err)
	}
	return tree, nil
}

// safeName maps a case number to a filesystem-safe fragment.
func safeName(number string) string {
	return strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(number)
}
