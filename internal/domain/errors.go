package domain

import "errors"

// Every failure surfaced by calsync wraps exactly one of these kinds.
var (
	// a required environment variable is missing or malformed
	ErrConfig = errors.New("config error")

	// non-2xx response or transport failure when fetching a page or file
	ErrNetwork = errors.New("network error")

	// the generative model or task tracker rejected the request
	ErrExternalAPI = errors.New("external api error")

	// malformed JSON in the schema file, model response or cache
	ErrParse = errors.New("parse error")

	// no calendar link on the landing page
	ErrNotFound = errors.New("not found")
)
