// Package errors defines the failure taxonomy of the daylog pipeline.
//
// Per-mention problems (ErrAmbiguousTime) are absorbed inside the pipeline and
// only show up as markers on segments. Extraction, transcription and storage
// failures abort a single request and reach the caller wrapped around these
// sentinels, so callers can branch with errors.Is or the IsX helpers:
//
//	import dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
//
//	if dlerrors.IsExtraction(err) {
//	    // tell the user nothing was recorded
//	}
package errors

import "errors"

var (
	// ErrAmbiguousTime indicates a time reference that could not be resolved.
	ErrAmbiguousTime = errors.New("ambiguous time reference")

	// ErrExtraction indicates the extraction oracle could not parse the transcript.
	ErrExtraction = errors.New("extraction failed")

	// ErrTranscription indicates voice input could not be turned into text.
	ErrTranscription = errors.New("transcription failed")

	// ErrStorage indicates the timeline store failed; nothing may be assumed persisted.
	ErrStorage = errors.New("storage failure")

	// ErrConflict indicates a concurrent write won the optimistic version check.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation error")
)

// IsAmbiguousTime reports whether any error in err's chain is ErrAmbiguousTime.
func IsAmbiguousTime(err error) bool {
	return errors.Is(err, ErrAmbiguousTime)
}

// IsExtraction reports whether any error in err's chain is ErrExtraction.
func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

// IsTranscription reports whether any error in err's chain is ErrTranscription.
func IsTranscription(err error) bool {
	return errors.Is(err, ErrTranscription)
}

// IsStorage reports whether any error in err's chain is ErrStorage.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsConflict reports whether any error in err's chain is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// RequestFailed reports whether err aborts a whole request, as opposed to
// per-mention ambiguity which the pipeline absorbs.
func RequestFailed(err error) bool {
	return IsExtraction(err) || IsTranscription(err) || IsStorage(err)
}
