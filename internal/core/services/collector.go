package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure Collector implements the interface.
var _ driving.Collector = (*Collector)(nil)

// PagingGroup returns the portal's group name for a category, used to
// build the pagination field names on the control form.
func PagingGroup(c domain.Category) string {
	if c == domain.CategoryGenerated {
		return "Gerados"
	}
	return "Recebidos"
}

// Collector paginates both inbox categories, merges the per-page
// results into one canonical ordered set and applies the filter
// criteria.
type Collector struct {
	adapter driven.PortalAdapter
	session driving.SessionManager
}

// NewCollector creates a collector reading through the given session.
func NewCollector(adapter driven.PortalAdapter, session driving.SessionManager) *Collector {
	return &Collector{adapter: adapter, session: session}
}

// Collect reads both categories and returns the merged set before and
// after filtering. A category that fails mid-pagination keeps its
// already-collected pages; the whole collection fails only when both
// categories produced nothing.
func (c *Collector) Collect(ctx context.Context, criteria domain.FilterCriteria, caps domain.PaginationCaps) (*driving.CollectResult, error) {
	ready, err := c.session.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}

	acc := newCaseAccumulator()
	var warnings []domain.Warning
	failures := 0

	for _, category := range domain.Categories {
		if err := c.collectCategory(ctx, category, ready.Control, caps, acc); err != nil {
			if errors.Is(err, domain.ErrAuthentication) {
				return nil, err
			}
			if acc.countFor(category) == 0 {
				failures++
			}
			warnings = append(warnings, domain.Warning{
				Stage:   domain.StageCollect,
				Message: fmt.Sprintf("%s: pagination aborted: %v", category, err),
			})
		}
	}

	if failures == len(domain.Categories) {
		return nil, fmt.Errorf("%w: no listing could be read", domain.ErrPagination)
	}

	all := acc.ordered()
	filtered := criteria.Apply(all)
	logger.Info("Collected %d cases (%d after filters)", len(all), len(filtered))

	return &driving.CollectResult{All: all, Filtered: filtered, Warnings: warnings}, nil
}

// collectCategory pages through one listing. The control page the
// session reached readiness on already holds page one of both
// listings; subsequent pages come from resubmitting the control form
// with the category's page fields advanced.
func (c *Collector) collectCategory(ctx context.Context, category domain.Category, control *domain.Page, caps domain.PaginationCaps, acc *caseAccumulator) error {
	listing, ok := control.Listings[category]
	if !ok || !listing.Present {
		logger.Debug("%s: listing absent from control page", category)
		return nil
	}

	newOnFirst := acc.addAll(category, listing.Rows)
	logger.Debug("%s: page %d yielded %d new case(s)", category, listing.Pagination.CurrentPage+1, newOnFirst)

	info := listing.Pagination
	limit := caps.LimitFor(category, info.TotalPages)
	current := control

	for page := info.CurrentPage + 1; page < limit; page++ {
		next, err := c.fetchPage(ctx, category, current, page)
		if err != nil {
			return err
		}
		current = next

		nextListing, ok := next.Listings[category]
		if !ok {
			return fmt.Errorf("page %d: listing missing from response", page+1)
		}
		added := acc.addAll(category, nextListing.Rows)
		logger.Info("%s: page %d/%d, %d new case(s)", category, page+1, info.TotalPages, added)

		// A page with nothing new means the portal is repeating
		// itself; stop rather than loop.
		if added == 0 {
			logger.Debug("%s: stopping, page %d had no new cases", category, page+1)
			return nil
		}
		if !nextListing.Pagination.HasNext() {
			return nil
		}
	}
	return nil
}

// fetchPage requests one listing page, retrying once on transient
// failures and once across a transparent re-login on session expiry.
func (c *Collector) fetchPage(ctx context.Context, category domain.Category, current *domain.Page, page int) (*domain.Page, error) {
	next, err := c.submitPaging(ctx, category, current, page)
	if err == nil {
		return next, nil
	}

	if errors.Is(err, domain.ErrSessionExpired) {
		c.session.Reset()
		ready, readyErr := c.session.EnsureReady(ctx)
		if readyErr != nil {
			return nil, readyErr
		}
		return c.submitPaging(ctx, category, ready.Control, page)
	}
	if driven.IsTransient(err) {
		logger.Warn("%s: page %d failed (%v), retrying once", category, page+1, err)
		return c.submitPaging(ctx, category, current, page)
	}
	return nil, err
}

func (c *Collector) submitPaging(ctx context.Context, category domain.Category, current *domain.Page, page int) (*domain.Page, error) {
	form := findForm(current, fmt.Sprintf(driven.PagingFieldCurrent, PagingGroup(category)))
	if form == nil {
		return nil, fmt.Errorf("control form not found for paging")
	}

	group := PagingGroup(category)
	target := fmt.Sprintf("%d", page)
	fields := map[string]string{}
	for _, tmpl := range []string{driven.PagingFieldCurrent, driven.PagingFieldSelectorUpper, driven.PagingFieldSelectorLower} {
		name := fmt.Sprintf(tmpl, group)
		if _, ok := form.Fields[name]; ok {
			fields[name] = target
		}
	}
	if _, ok := fields[fmt.Sprintf(driven.PagingFieldCurrent, group)]; !ok {
		return nil, fmt.Errorf("paging unavailable for %s", category)
	}

	return c.adapter.SubmitForm(ctx, *form, fields)
}

// caseAccumulator keeps the merged case set in first-seen insertion
// order, keyed by canonical case number.
type caseAccumulator struct {
	order    []string
	byNumber map[string]*domain.Case
	perCat   map[domain.Category]int
}

func newCaseAccumulator() *caseAccumulator {
	return &caseAccumulator{
		byNumber: make(map[string]*domain.Case),
		perCat:   make(map[domain.Category]int),
	}
}

// addAll merges the rows and returns how many were new.
func (a *caseAccumulator) addAll(category domain.Category, rows []domain.Case) int {
	added := 0
	for i := range rows {
		if a.add(rows[i]) {
			added++
		}
	}
	a.perCat[category] += added
	return added
}

// add merges one record. Records with the same case number collapse
// field by field; the first occurrence keeps its output position and
// its category.
func (a *caseAccumulator) add(c domain.Case) bool {
	if c.Number == "" {
		return false
	}
	if existing, ok := a.byNumber[c.Number]; ok {
		domain.Merge(existing, &c)
		return false
	}
	stored := c
	a.byNumber[c.Number] = &stored
	a.order = append(a.order, c.Number)
	return true
}

func (a *caseAccumulator) countFor(category domain.Category) int {
	return a.perCat[category]
}

func (a *caseAccumulator) ordered() []domain.Case {
	out := make([]domain.Case, 0, len(a.order))
	for _, number := range a.order {
		out = append(out, *a.byNumber[number])
	}
	return out
}
