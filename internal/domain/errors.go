package domain

import "errors"

// Error taxonomy for the screening pipelines. Per-symbol failures wrap
// ErrDataUnavailable, ErrSchemaViolation or ErrCollaborator and are isolated;
// only ErrConfig and ErrPartitionInvariant abort a whole run.
var (
	// ErrConfig marks a malformed rulebook or thresholds. Fatal before any stage.
	ErrConfig = errors.New("invalid configuration")

	// ErrDataUnavailable marks a provider returning nothing for a symbol/date.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrSchemaViolation marks generation-service output failing structural validation.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrCollaborator marks a generation-service or provider call failure/timeout.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrPartitionInvariant marks an internal defect in the coarse partition.
	ErrPartitionInvariant = errors.New("partition invariant violation")
)
