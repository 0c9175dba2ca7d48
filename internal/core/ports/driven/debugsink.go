package driven

// DebugSink receives raw page markup for offline inspection.
// Implementations bound how many artifacts they keep; once the cap is
// reached further dumps are dropped silently.
type DebugSink interface {
	// Dump writes one artifact under the given name hint.
	Dump(name, markup string) error
}
