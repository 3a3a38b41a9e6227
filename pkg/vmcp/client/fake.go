// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// FakeBackend is an in-memory Backend for tests. Configurations are stored
// per identity; errors and latency can be injected per operation.
type FakeBackend struct {
	mu        sync.Mutex
	snapshots map[string]*config.Snapshot

	fetchErr  error
	createErr error
	updateErr error

	fetchDelay time.Duration

	fetchCount  int
	createCount int
	updateCount int
}

// NewFakeBackend creates an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{snapshots: make(map[string]*config.Snapshot)}
}

// Seed stores a snapshot under its identity without going through create.
func (f *FakeBackend) Seed(snapshot *config.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[snapshot.Identity] = snapshot.Clone()
}

// SetFetchError makes FetchConfiguration fail with err until cleared.
func (f *FakeBackend) SetFetchError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// SetCreateError makes CreateConfiguration fail with err until cleared.
func (f *FakeBackend) SetCreateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

// SetUpdateError makes UpdateConfiguration fail with err until cleared.
func (f *FakeBackend) SetUpdateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

// SetFetchDelay blocks fetches for d before responding, honoring context
// cancellation. Used to exercise slow-load scenarios.
func (f *FakeBackend) SetFetchDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchDelay = d
}

// FetchConfiguration implements Backend.
func (f *FakeBackend) FetchConfiguration(ctx context.Context, identity string) (*config.Snapshot, error) {
	f.mu.Lock()
	f.fetchCount++
	delay := f.fetchDelay
	injected := f.fetchErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", vmcp.ErrFetchFailed, ctx.Err())
		}
	}
	if injected != nil {
		return nil, fmt.Errorf("%w: %w", vmcp.ErrFetchFailed, injected)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[identity]
	if !ok {
		return nil, fmt.Errorf("%w: vmcp %q", vmcp.ErrNotFound, identity)
	}
	return snapshot.Clone(), nil
}

// CreateConfiguration implements Backend. The stored configuration gets a
// fresh backend-assigned identity, mirroring the real create flow.
func (f *FakeBackend) CreateConfiguration(_ context.Context, snapshot *config.Snapshot) (*config.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCount++
	if f.createErr != nil {
		return nil, fmt.Errorf("%w: %w", vmcp.ErrPersistFailed, f.createErr)
	}

	created, err := config.Normalize(snapshot)
	if err != nil {
		return nil, err
	}
	created.Identity = uuid.NewString()
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now
	f.snapshots[created.Identity] = created
	return created.Clone(), nil
}

// UpdateConfiguration implements Backend.
func (f *FakeBackend) UpdateConfiguration(_ context.Context, identity string, snapshot *config.Snapshot) (*config.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCount++
	if f.updateErr != nil {
		return nil, fmt.Errorf("%w: %w", vmcp.ErrPersistFailed, f.updateErr)
	}
	existing, ok := f.snapshots[identity]
	if !ok {
		return nil, fmt.Errorf("%w: vmcp %q", vmcp.ErrNotFound, identity)
	}

	updated, err := config.Normalize(snapshot)
	if err != nil {
		return nil, err
	}
	updated.Identity = identity
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	f.snapshots[identity] = updated
	return updated.Clone(), nil
}

// FetchCount reports how many fetches were attempted.
func (f *FakeBackend) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCount
}

// CreateCount reports how many creates were attempted.
func (f *FakeBackend) CreateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCount
}

// UpdateCount reports how many updates were attempted.
func (f *FakeBackend) UpdateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCount
}
