package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors without knowing
// which backend produced them.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness constraint rejected a write
// - ErrUnavailable: backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
