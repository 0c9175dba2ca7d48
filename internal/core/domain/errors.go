package domain

import "errors"

// Domain errors represent pipeline-level failures.
// Fatal errors stop the pipeline; everything recoverable travels as a
// Warning value instead of an error.
var (
	// ErrConfiguration indicates required configuration is missing or
	// invalid. Raised before any network activity.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAuthentication indicates the portal rejected the login
	// (bad credentials, locked account or an unrecognised login page).
	// Fatal; never retried automatically.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSessionExpired indicates the portal invalidated the session
	// mid-flight. The session manager re-authenticates transparently
	// once; a second consecutive expiry is fatal.
	ErrSessionExpired = errors.New("session expired")

	// ErrPagination indicates case collection failed completely for
	// both inbox categories with nothing collected.
	ErrPagination = errors.New("pagination failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoDownloadLink indicates the portal response carried no
	// artifact download URL for a case.
	ErrNoDownloadLink = errors.New("download link not found")

	// ErrEmptyArtifact indicates the portal returned an empty body for
	// a rendered artifact.
	ErrEmptyArtifact = errors.New("empty artifact body")

	// ErrNotPDF indicates the downloaded artifact is not a PDF.
	ErrNotPDF = errors.New("artifact is not a PDF")
)

// WarningStage identifies the pipeline stage that produced a warning.
type WarningStage string

const (
	// StageSession covers unit verification and switching.
	StageSession WarningStage = "session"
	// StageCollect covers listing pagination.
	StageCollect WarningStage = "collect"
	// StageEnrich covers document-subtree enrichment.
	StageEnrich WarningStage = "enrich"
	// StageDownload covers artifact downloads.
	StageDownload WarningStage = "download"
)

// Warning is a non-fatal condition recorded during a pipeline run.
// Warnings are accumulated and returned with the result rather than
// raised, so callers can inspect partial failures programmatically.
type Warning struct {
	// Stage is the pipeline stage that recorded the warning.
	Stage WarningStage

	// CaseNumber is the affected case, when the warning is case-scoped.
	CaseNumber string

	// Message describes what went wrong.
	Message string
}
