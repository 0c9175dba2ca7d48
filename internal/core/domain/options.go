package domain

// PaginationCaps bounds how many listing pages are read per category.
// Zero values mean no cap.
type PaginationCaps struct {
	// ReceivedPages caps pages read from the Received listing.
	ReceivedPages int

	// GeneratedPages caps pages read from the Generated listing.
	GeneratedPages int

	// TotalPages caps pages for either category; the tighter of the
	// per-category and global caps binds.
	TotalPages int
}

// LimitFor returns how many pages of the category may be read given
// the portal-reported page count. Always at least 1 so the initial
// page is kept even under a degenerate cap.
func (p PaginationCaps) LimitFor(category Category, totalPages int) int {
	limit := totalPages
	if p.TotalPages > 0 && p.TotalPages < limit {
		limit = p.TotalPages
	}
	perCategory := p.ReceivedPages
	if category == CategoryGenerated {
		perCategory = p.GeneratedPages
	}
	if perCategory > 0 && perCategory < limit {
		limit = perCategory
	}
	if limit < 1 {
		limit = 1
	}
	if limit > totalPages {
		limit = totalPages
	}
	return limit
}

// EnrichOptions configures the document-enrichment stage.
type EnrichOptions struct {
	// Enabled turns document collection on.
	Enabled bool

	// Limit caps how many cases are enriched, in input order.
	// Zero means all.
	Limit int

	// DumpHTML persists raw subtree markup to the debug sink.
	DumpHTML bool

	// DumpLimit caps how many subtree dumps are written. Zero means
	// the sink's own cap applies.
	DumpLimit int
}

// DownloadOptions configures the artifact-download stage.
type DownloadOptions struct {
	// Enabled turns batch downloading on.
	Enabled bool

	// Dir is the target directory for downloaded artifacts.
	Dir string

	// Parallel switches to the bounded worker pool.
	Parallel bool

	// Workers is the pool size when Parallel is set.
	Workers int

	// Retries is the per-case attempt budget.
	Retries int

	// Limit caps how many cases are processed. Zero means all.
	Limit int
}

// RunOptions is the full, already-validated configuration surface
// consumed by the pipeline facade.
type RunOptions struct {
	// Criteria filters the merged case set.
	Criteria FilterCriteria

	// Pagination bounds listing collection.
	Pagination PaginationCaps

	// Enrich configures document enrichment.
	Enrich EnrichOptions

	// Download configures artifact retrieval.
	Download DownloadOptions

	// PersistHistory saves the final case set to the history store.
	PersistHistory bool
}
