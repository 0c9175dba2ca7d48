// Package portal implements the portal adapter against the real SEI
// web interface. It owns the HTTP session (cookie jar, Latin-1
// decoding, rate limiting) and turns raw portal markup into the
// parsed page structures the orchestration core consumes.
package portal
