// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package vmcp

import "errors"

// Common domain errors used across vmcp subpackages.
// Domain errors are defined at the package root and should be checked
// using errors.Is(). Wrapping errors provide the identity and operation
// so the edit surface can render an actionable message.

var (
	// ErrNotFound indicates a requested record (snapshot, draft) was not found.
	// Wrapping errors should provide specific details about what was not found.
	ErrNotFound = errors.New("not found")

	// ErrMalformedConfig indicates a configuration document is missing required
	// scalar fields after normalization. Missing optional collections are never
	// reported through this error.
	ErrMalformedConfig = errors.New("malformed configuration")

	// ErrFetchFailed indicates the canonical snapshot could not be fetched from
	// the backend. Local draft state must never be destroyed on this error.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrValidationFailed indicates the draft failed local validation before
	// save, or was rejected by the backend as invalid. It is permanent and
	// never retried.
	ErrValidationFailed = errors.New("validation failed")

	// ErrPersistFailed indicates the backend rejected or failed a save request.
	// The draft remains intact so the user can retry without re-entering data.
	ErrPersistFailed = errors.New("persist failed")

	// ErrStorageFailed indicates a draft store read or write error. Callers
	// degrade to an in-memory draft and warn; this is never fatal.
	ErrStorageFailed = errors.New("draft storage failed")

	// ErrSaveInFlight indicates a save was requested while another save for the
	// same identity is still running. Saves are serialized, never interleaved.
	ErrSaveInFlight = errors.New("save already in flight")

	// ErrSessionClosed indicates an operation was attempted on a closed edit
	// session. A new session must be opened for the target identity.
	ErrSessionClosed = errors.New("session closed")
)
