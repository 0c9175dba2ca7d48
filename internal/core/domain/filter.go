package domain

import "strings"

// Visibility selects cases by their viewed flag.
type Visibility string

const (
	// VisibilityAny keeps viewed and unviewed cases.
	VisibilityAny Visibility = "any"
	// VisibilityViewed keeps only already-opened cases.
	VisibilityViewed Visibility = "viewed"
	// VisibilityUnviewed keeps only not-yet-opened cases.
	VisibilityUnviewed Visibility = "unviewed"
)

// FilterCriteria is a pure, order-independent predicate over a Case,
// applied once after collection. Zero values mean "no constraint".
type FilterCriteria struct {
	// Visibility filters on the viewed flag. Empty means any.
	Visibility Visibility

	// Categories restricts to a category subset. Empty means both.
	Categories []Category

	// Assignees are OR-matched substrings against the assignee name.
	Assignees []string

	// Types are OR-matched substrings against the type/specificity.
	Types []string

	// Markers are OR-matched substrings against the marker set.
	Markers []string

	// RequireNewDocuments keeps only cases flagged with new documents.
	RequireNewDocuments bool

	// RequireAnnotations keeps only cases flagged with annotations.
	RequireAnnotations bool

	// Limit caps the result after filtering. Zero means unlimited.
	Limit int
}

// Matches reports whether the case satisfies every configured
// constraint (the criteria form a single conjunctive predicate).
func (f FilterCriteria) Matches(c *Case) bool {
	switch f.Visibility {
	case VisibilityViewed:
		if !c.Viewed {
			return false
		}
	case VisibilityUnviewed:
		if c.Viewed {
			return false
		}
	}

	if len(f.Categories) > 0 && !containsCategory(f.Categories, c.Category) {
		return false
	}
	if !matchesAny(c.AssigneeName, f.Assignees) {
		return false
	}
	if !matchesAny(c.TypeSpec, f.Types) {
		return false
	}
	if len(f.Markers) > 0 && !markerMatch(c.Markers, f.Markers) {
		return false
	}
	if f.RequireNewDocuments && !c.HasNewDocuments {
		return false
	}
	if f.RequireAnnotations && !c.HasAnnotations {
		return false
	}
	return true
}

// Apply filters the cases preserving relative order and truncates to
// the configured limit. The input slice is not modified.
func (f FilterCriteria) Apply(cases []Case) []Case {
	var out []Case
	for i := range cases {
		if f.Matches(&cases[i]) {
			out = append(out, cases[i])
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out
}

// matchesAny reports whether target contains any of the terms,
// case-insensitively. An empty term list always matches.
func matchesAny(target string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lowered := strings.ToLower(target)
	for _, term := range terms {
		if term != "" && strings.Contains(lowered, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func markerMatch(markers, terms []string) bool {
	for _, marker := range markers {
		if matchesAny(marker, terms) {
			return true
		}
	}
	return false
}

func containsCategory(categories []Category, c Category) bool {
	for _, cat := range categories {
		if cat == c {
			return true
		}
	}
	return false
}
