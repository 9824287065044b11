package types

import (
	"errors"
	"fmt"
	"strings"
)

// snippetLen caps the amount of raw model output carried in an error. Full
// responses go to the logs only, never to the caller.
const snippetLen = 120

// MalformedResponseError reports a model completion whose output could not be
// parsed even after truncation recovery. It carries a short snippet of the raw
// response for the caller-facing diagnostic.
type MalformedResponseError struct {
	Stage   string // which completion produced it, e.g. "preference profile"
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: response was cut off or malformed (snippet: %s...)", e.Stage, e.Snippet)
}

// NewMalformedResponseError builds a MalformedResponseError from the raw
// model output, truncating the diagnostic snippet.
func NewMalformedResponseError(stage, raw string) *MalformedResponseError {
	snippet := raw
	if len(snippet) > snippetLen {
		snippet = snippet[:snippetLen]
	}
	return &MalformedResponseError{Stage: stage, Snippet: snippet}
}

// IsMalformedResponse reports whether err is (or wraps) a
// MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}

// UpstreamError reports a whole-stage failure of an external dependency: the
// profiling or ranking completion call itself failed, or the catalog fetch
// aborted. Per-query catalog failures are absorbed by the sourcing loop and
// never reach this type.
type UpstreamError struct {
	Op  string // "profile completion", "ranking completion", "catalog fetch"
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsQuotaExhausted classifies provider errors that indicate exhausted quota
// or rate limits, the condition that triggers a model re-probe and a single
// retry.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota") ||
		strings.Contains(msg, "429")
}
