package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide between retrying,
// degrading, and aborting a job.
type ErrorKind int

const (
	// KindTransientBackend marks a retryable network or backend fault. It is
	// fatal to the calling job only after the retry budget is exhausted.
	KindTransientBackend ErrorKind = iota
	// KindMissingPromptAsset means a required instruction template is absent.
	// Raised before any model call; fatal for the job.
	KindMissingPromptAsset
	// KindMalformedOutput means the parser could not find an expected tag or
	// field in the model response. Non-fatal; callers substitute defaults.
	KindMalformedOutput
	// KindInvalidPageRange means a page-range string failed the grammar or
	// bounds check. Raised before any network activity; fatal.
	KindInvalidPageRange
	// KindJobFailure wraps any uncaught error surfacing from a batch job.
	// Caught exactly at the batch boundary, never propagated to siblings.
	KindJobFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientBackend:
		return "transient_backend"
	case KindMissingPromptAsset:
		return "missing_prompt_asset"
	case KindMalformedOutput:
		return "malformed_model_output"
	case KindInvalidPageRange:
		return "invalid_page_range"
	case KindJobFailure:
		return "job_failure"
	}
	return "unknown"
}

// Error is the taxonomy error type shared across the pipeline.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// TransientBackendError constructs a retryable backend fault.
func TransientBackendError(msg string, err error) error {
	return &Error{Kind: KindTransientBackend, Msg: msg, Err: err}
}

// MissingPromptAssetError reports an absent instruction template.
func MissingPromptAssetError(name string) error {
	return &Error{Kind: KindMissingPromptAsset, Msg: name}
}

// MalformedOutputError reports an expected tag or field the parser could
// not locate.
func MalformedOutputError(msg string) error {
	return &Error{Kind: KindMalformedOutput, Msg: msg}
}

// InvalidPageRangeError reports a page-range string that failed validation.
func InvalidPageRangeError(msg string) error {
	return &Error{Kind: KindInvalidPageRange, Msg: msg}
}

// JobFailureError wraps an uncaught error at the batch job boundary.
func JobFailureError(job string, err error) error {
	return &Error{Kind: KindJobFailure, Msg: job, Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// IsTransient reports whether err is a retryable backend fault.
func IsTransient(err error) bool { return IsKind(err, KindTransientBackend) }
