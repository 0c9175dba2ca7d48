// Package domain contains the core business types for the SEI case
// pipeline: cases, documents, organisational units, filter criteria and
// batch-download reports. It has no dependencies on the portal, storage
// or CLI layers.
package domain
