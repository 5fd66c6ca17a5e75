// Package errs defines the error taxonomy shared by the build pipeline.
//
// Callers classify failures with errors.Is against the sentinels below.
// Session-scoped errors are surfaced as rejected requests; only
// ErrConfiguration is fatal to the process.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a required setting is missing at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyInput means a game idea, message or session reference was empty.
	ErrEmptyInput = errors.New("empty input")
	// ErrParseExtraction means a backend response had no usable artifact or JSON.
	ErrParseExtraction = errors.New("could not extract content from response")
	// ErrSessionNotFound means the referenced session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBackend wraps failures returned by the generative backend.
	ErrBackend = errors.New("backend call failed")
	// ErrNotClarified means a build was requested before requirements were clear.
	ErrNotClarified = errors.New("requirements not yet clarified")
	// ErrNotBuilt means artifacts were requested for a session with no build.
	ErrNotBuilt = errors.New("game not built yet")
	// ErrInterrupted means the user cancelled an interactive prompt.
	ErrInterrupted = errors.New("interrupted by user")
)

const previewLimit = 500

// ParseError reports text that could not be parsed, with a truncated preview.
type ParseError struct {
	What    string
	Preview string
	Err     error
}

// NewParseError builds a ParseError, truncating text to the preview limit.
func NewParseError(what, text string, err error) *ParseError {
	runes := []rune(text)
	if len(runes) > previewLimit {
		runes = runes[:previewLimit]
	}
	return &ParseError{What: what, Preview: string(runes), Err: err}
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("could not extract %s from response", e.What)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "\n" + e.Preview
}

// Unwrap lets errors.Is match both ErrParseExtraction and the cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParseExtraction}
	}
	return []error{ErrParseExtraction, e.Err}
}
