// Package driving defines the service interfaces the CLI and other
// entry points drive: the pipeline facade and its stages.
package driving
