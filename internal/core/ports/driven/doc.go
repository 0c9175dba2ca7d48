// Package driven defines the capability interfaces the orchestration
// core consumes: the portal adapter, the history store and the debug
// sink. Adapters implement these; the core never depends on an
// implementation.
package driven
