package models

import "errors"

// Errors that escape the prediction engine. Everything else degrades to a
// documented fallback path inside the engine.
var (
	// ErrUnknownDomain reports a domain tag outside the four recognized ones.
	// Surfaced to the caller as a client error.
	ErrUnknownDomain = errors.New("unknown prediction domain")

	// ErrDataSourceUnavailable reports a failed fetch from the historical
	// record source. Surfaced as a dependency error; no partial-data mode.
	ErrDataSourceUnavailable = errors.New("historical data source unavailable")
)
