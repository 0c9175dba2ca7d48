package domain

import (
	"regexp"
	"strings"
)

// Category is one of the two inbox partitions of the case-control page.
type Category string

const (
	// CategoryReceived holds cases received by the active unit.
	CategoryReceived Category = "Received"
	// CategoryGenerated holds cases generated by the active unit.
	CategoryGenerated Category = "Generated"
)

// Categories lists both inbox categories in collection order.
var Categories = []Category{CategoryReceived, CategoryGenerated}

// caseNumberRe matches portal case numbers, tolerating stray spaces
// around the separators ("1500. 01. 0310980/2025-88").
var caseNumberRe = regexp.MustCompile(`\d{4}\.\s?\d{2}\.\s?\d{7}\s*/\s*\d{4}\s*[-–—‐‑‒−]\s*\d{2}`)

var (
	dotSpaceRe  = regexp.MustCompile(`\.\s+`)
	slashRe     = regexp.MustCompile(`\s*/\s*`)
	dashRe      = regexp.MustCompile(`\s*[-–—‐‑‒−]\s*`)
	nbspReplace = strings.NewReplacer(" ", " ", "​", "", "‌", "", "‍", "", "\uFEFF", "")
)

// CanonicalCaseNumber normalises the textual representation of a case
// number so formatting variants of the same case compare equal:
// NBSP and zero-width characters are dropped, unicode dashes become
// ASCII hyphens and spacing around separators is removed.
func CanonicalCaseNumber(text string) string {
	text = nbspReplace.Replace(text)
	text = dotSpaceRe.ReplaceAllString(text, ".")
	text = slashRe.ReplaceAllString(text, "/")
	text = dashRe.ReplaceAllString(text, "-")
	return strings.TrimSpace(text)
}

// FindCaseNumber extracts and canonicalises the first case number found
// in the given text. Returns empty string when none is present.
func FindCaseNumber(text string) string {
	match := caseNumberRe.FindString(nbspReplace.Replace(text))
	if match == "" {
		return ""
	}
	return CanonicalCaseNumber(match)
}

// Case is one tracked unit of work in the portal. Its identity is the
// canonical case number; the procedure ID is a secondary key used for
// paging continuity and document-subtree fetches.
type Case struct {
	// Number is the canonical case number.
	Number string

	// ProcedureID is the portal-internal procedure identifier.
	ProcedureID string

	// URL is the absolute case page URL.
	URL string

	// Category records which inbox listing classified the case.
	Category Category

	// Viewed indicates the case was already opened by the user.
	Viewed bool

	// Title is the tooltip title, when present.
	Title string

	// TypeSpec is the case type/specificity from the tooltip.
	TypeSpec string

	// AssigneeName is the display name of the assigned user.
	AssigneeName string

	// AssigneeID is the assignee's portal identifier.
	AssigneeID string

	// Markers are the status-marker tooltips attached to the row.
	Markers []string

	// HasNewDocuments indicates the new-documents flag on the row.
	HasNewDocuments bool

	// HasAnnotations indicates the annotations flag on the row.
	HasAnnotations bool

	// Confidential indicates a restricted access level.
	Confidential bool

	// Signers are the signer names collected from the document tree.
	Signers []string

	// Hash is the portal's access-validation hash for the case URL.
	Hash string

	// Metadata holds open-ended key-value data.
	Metadata map[string]any

	// Documents is the attached document list. Owned by the case;
	// replaced wholesale on enrichment.
	Documents []Document
}

// Document is one entry of a case's document subtree.
type Document struct {
	// ID is the portal-internal document identifier.
	ID string

	// Title is the tree node label.
	Title string

	// Type is the tree node type.
	Type string

	// URL is the document's absolute page URL.
	URL string

	// Hash is the access-validation hash from the document URL.
	Hash string

	// DownloadURL is the attachment download URL, when present.
	DownloadURL string

	// ViewURL is the inline-view URL, when present.
	ViewURL string

	// Indicators are CSS-class style markers on the node.
	Indicators []string

	// Signers are the signer names parsed from signature actions.
	Signers []string

	// Confidential indicates a restricted access level.
	Confidential bool

	// Signed indicates the document carries signatures.
	Signed bool

	// New indicates the not-yet-visited node state.
	New bool

	// Metadata holds open-ended key-value data, including the
	// access-level text under "access_level".
	Metadata map[string]any
}

// Merge folds src into dst according to the canonical merge rule for
// records sharing a case number across pages or categories: last-seen
// non-empty field wins per field, boolean flags accumulate, list fields
// union preserving order, and Category stays with whichever side
// classified the case first. dst keeps its position in output order.
//
// The rule lives here as one total function so it can be audited and
// tested in isolation instead of being scattered through the
// pagination loop.
func Merge(dst, src *Case) {
	if src == nil || dst == nil {
		return
	}

	if dst.ProcedureID == "" {
		dst.ProcedureID = src.ProcedureID
	}
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.TypeSpec != "" {
		dst.TypeSpec = src.TypeSpec
	}
	if src.AssigneeName != "" {
		dst.AssigneeName = src.AssigneeName
	}
	if src.AssigneeID != "" {
		dst.AssigneeID = src.AssigneeID
	}
	if src.Hash != "" {
		dst.Hash = src.Hash
	}

	dst.Viewed = dst.Viewed || src.Viewed
	dst.HasNewDocuments = dst.HasNewDocuments || src.HasNewDocuments
	dst.HasAnnotations = dst.HasAnnotations || src.HasAnnotations
	dst.Confidential = dst.Confidential || src.Confidential

	dst.Markers = appendUnique(dst.Markers, src.Markers...)
	dst.Signers = appendUnique(dst.Signers, src.Signers...)

	if len(src.Metadata) > 0 {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]any, len(src.Metadata))
		}
		for k, v := range src.Metadata {
			dst.Metadata[k] = v
		}
	}

	if len(src.Documents) > 0 {
		dst.Documents = src.Documents
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		seen := false
		for _, have := range dst {
			if have == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
