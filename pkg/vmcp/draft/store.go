// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package draft provides durable persistence for in-progress vMCP
// configuration edits.
//
// A draft record survives page reloads and process restarts without a
// server round-trip. Records are keyed by vMCP identity: operations for one
// identity never affect another identity's record, and a record is removed
// on explicit discard or after a successful save.
package draft

import (
	"context"
	"time"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// Record is the persisted wrapper around an uncommitted edit snapshot.
type Record struct {
	// Identity is the vMCP identity the draft belongs to.
	Identity string `json:"identity" yaml:"identity"`

	// Snapshot is the uncommitted edit state.
	Snapshot *config.Snapshot `json:"snapshot" yaml:"snapshot"`

	// CanonicalVersion records which canonical state the draft was based on
	// (the backend's updatedAt at draft creation time) so the edit surface
	// can warn about stale drafts.
	CanonicalVersion string `json:"canonicalVersion,omitempty" yaml:"canonicalVersion,omitempty"`

	// SavedAt is when the record was last persisted.
	SavedAt time.Time `json:"savedAt" yaml:"savedAt"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Snapshot = r.Snapshot.Clone()
	return &out
}

// Store defines draft persistence operations.
//
// Implementations must return vmcp.ErrNotFound from Get when no record
// exists for the identity, and must make Clear idempotent.
type Store interface {
	// Get retrieves the draft record for the given identity.
	Get(ctx context.Context, identity string) (*Record, error)

	// Put overwrites the draft record for the given identity.
	Put(ctx context.Context, identity string, record *Record) error

	// Clear removes the record for the given identity. Clearing an absent
	// record is not an error.
	Clear(ctx context.Context, identity string) error

	// List returns the identities that currently have a persisted draft.
	List(ctx context.Context) ([]string, error)
}
