package domain

// Page is the parsed representation of one portal page as returned by
// the portal adapter. The orchestration core reads these fields and
// never touches raw markup; whatever the adapter could not find is
// left at its zero value.
type Page struct {
	// Title is the page title.
	Title string

	// LoggedIn indicates the page shows an authenticated identity.
	LoggedIn bool

	// ActiveUnit is the currently active organisational unit, when
	// the page displays one.
	ActiveUnit string

	// Alert is the portal's message-box text, when present.
	Alert string

	// Forms are the serialised forms found on the page.
	Forms []Form

	// Listings are the case tables keyed by category.
	Listings map[Category]Listing

	// Units is the offered unit list on the unit-selection page.
	Units []UnitOption

	// TreeSrc is the document-tree frame URL on a case page.
	TreeSrc string

	// PDFLink is the artifact-generation link in the document tree.
	PDFLink string

	// DownloadURL is the final artifact URL, when the page carries
	// one.
	DownloadURL string

	// Documents are the document records parsed from a tree page.
	Documents []Document

	// CaseSigners are signer names attached to the case itself
	// rather than to one of its documents.
	CaseSigners []string

	// CaseConfidential indicates a restricted access level attached
	// to the case itself.
	CaseConfidential bool

	// RawHTML is the decoded page markup, kept for debug dumps.
	RawHTML string
}

// Form is a serialised HTML form ready for resubmission.
type Form struct {
	// Name is the form's name or id attribute.
	Name string

	// Action is the absolute submit URL.
	Action string

	// Method is the lower-cased HTTP method, defaulting to post.
	Method string

	// Fields holds every serialised field value.
	Fields map[string]string
}

// Field returns a field value, or empty when absent.
func (f *Form) Field(name string) string {
	return f.Fields[name]
}

// WithFields returns a copy of the form with the given overrides
// applied, leaving the original untouched.
func (f *Form) WithFields(overrides map[string]string) Form {
	clone := Form{Name: f.Name, Action: f.Action, Method: f.Method, Fields: make(map[string]string, len(f.Fields)+len(overrides))}
	for k, v := range f.Fields {
		clone.Fields[k] = v
	}
	for k, v := range overrides {
		clone.Fields[k] = v
	}
	return clone
}

// Listing is one category's case table plus its pagination state.
type Listing struct {
	// Present indicates the table exists on the page at all.
	Present bool

	// Rows are the parsed case records, in page order.
	Rows []Case

	// Pagination is the table's paging state.
	Pagination PageInfo
}

// PageInfo is the paging state the portal reports for one listing.
type PageInfo struct {
	// TotalRecords is the portal-reported record count.
	TotalRecords int

	// CurrentPage is the zero-based current page.
	CurrentPage int

	// TotalPages is the computed page count, at least 1.
	TotalPages int

	// PerPage is the records-per-page size.
	PerPage int
}

// HasNext reports whether pages remain after the current one.
func (p PageInfo) HasNext() bool {
	return p.CurrentPage+1 < p.TotalPages
}
