// Package services implements the orchestration core: the session
// life-cycle state machine, the paginated deduplicating case
// collector, the document enricher, the bounded-concurrency download
// engine and the pipeline facade composing them.
package services
