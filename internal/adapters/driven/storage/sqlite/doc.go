// Package sqlite provides the SQLite-backed run history store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite
// implementation that requires no CGO, enabling easy
// cross-compilation. Case sets and download reports are stored as
// JSON columns; the run row itself carries the queryable fields.
package sqlite
