package models

import "errors"

// Error taxonomy for the orchestrator. Collaborator failures are translated
// into these at the service boundary; no raw collaborator error crosses into
// lifecycle state.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request failed validation before any state mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidFeed indicates a feed address could not be validated at registration.
	ErrInvalidFeed = errors.New("invalid feed")

	// ErrFeedUnreachable indicates the feed endpoint could not be fetched.
	ErrFeedUnreachable = errors.New("feed unreachable")

	// ErrFeedUnparseable indicates the feed body could not be parsed.
	ErrFeedUnparseable = errors.New("feed unparseable")

	// ErrGenerationFailed indicates the text-generation collaborator errored or
	// returned unusable output. The owning item keeps its prior status.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrDuplicate marks content whose dedup key already exists in scope.
	ErrDuplicate = errors.New("duplicate content")

	// ErrAlreadyInProgress is a concurrency-guard rejection, not a fault.
	// Callers should retry later.
	ErrAlreadyInProgress = errors.New("operation already in progress")

	// ErrStaleWrite indicates a section replacement was based on an outdated
	// item version. Callers must re-fetch and retry.
	ErrStaleWrite = errors.New("stale write: item version mismatch")

	// ErrNothingToUndo indicates no mutation snapshot is available.
	ErrNothingToUndo = errors.New("nothing to undo")
)
