package domain

import "strings"

// NormalizeUnit canonicalises an organisational unit name: surrounding
// whitespace is trimmed, internal whitespace runs collapse to a single
// space, and the result is upper-cased. Unit equality anywhere in the
// pipeline is equality of normalised names.
func NormalizeUnit(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// UnitEqual reports whether two unit names identify the same unit.
// Comparison is case-insensitive and whitespace-insensitive.
func UnitEqual(a, b string) bool {
	return NormalizeUnit(a) == NormalizeUnit(b) && NormalizeUnit(a) != ""
}

// UnitOption is one entry of the portal's unit-selection list.
type UnitOption struct {
	// ID is the portal-internal unit identifier used to switch.
	ID string

	// Name is the displayed unit name.
	Name string
}
