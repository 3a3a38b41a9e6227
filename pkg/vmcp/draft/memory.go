// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

// memoryStore implements Store using in-memory storage.
// It backs tests and the degraded mode the session falls back to when
// durable storage fails: the draft then survives for the life of the
// process only, which beats losing the user's work outright.
type memoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an in-memory draft store.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]*Record)}
}

func (s *memoryStore) Get(_ context.Context, identity string) (*Record, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: no draft for %s", vmcp.ErrNotFound, identity)
	}
	// Deep copy to prevent external modifications.
	return record.Clone(), nil
}

func (s *memoryStore) Put(_ context.Context, identity string, record *Record) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}
	if record == nil || record.Snapshot == nil {
		return fmt.Errorf("%w: record is required", vmcp.ErrStorageFailed)
	}
	if record.Identity != identity {
		return fmt.Errorf("%w: record identity %s does not match key %s",
			vmcp.ErrStorageFailed, record.Identity, identity)
	}

	stored := record.Clone()
	stored.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identity] = stored
	return nil
}

func (s *memoryStore) Clear(_ context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identity)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identities := make([]string, 0, len(s.records))
	for identity := range s.records {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities, nil
}
