// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"context"
	"errors"
	"sync"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

// fallbackStore wraps a durable primary store with an in-memory fallback.
// When the primary fails with a storage error the store degrades: the
// failure is logged once and all subsequent operations use the fallback, so
// the user's draft survives for the life of the process instead of the
// session crashing. ErrNotFound is a normal outcome, never a degradation
// trigger.
type fallbackStore struct {
	primary  Store
	fallback Store

	mu       sync.Mutex
	degraded bool
}

// NewFallbackStore returns a store that degrades from primary to an
// in-memory fallback on storage failure.
func NewFallbackStore(primary Store) Store {
	return &fallbackStore{primary: primary, fallback: NewMemoryStore()}
}

func (s *fallbackStore) Get(ctx context.Context, identity string) (*Record, error) {
	record, err := s.active().Get(ctx, identity)
	if s.shouldDegrade(err) {
		s.degrade(identity, err)
		return s.fallback.Get(ctx, identity)
	}
	return record, err
}

func (s *fallbackStore) Put(ctx context.Context, identity string, record *Record) error {
	err := s.active().Put(ctx, identity, record)
	if s.shouldDegrade(err) {
		s.degrade(identity, err)
		return s.fallback.Put(ctx, identity, record)
	}
	return err
}

func (s *fallbackStore) Clear(ctx context.Context, identity string) error {
	err := s.active().Clear(ctx, identity)
	if s.shouldDegrade(err) {
		s.degrade(identity, err)
		return s.fallback.Clear(ctx, identity)
	}
	return err
}

func (s *fallbackStore) List(ctx context.Context) ([]string, error) {
	identities, err := s.active().List(ctx)
	if s.shouldDegrade(err) {
		s.degrade("", err)
		return s.fallback.List(ctx)
	}
	return identities, err
}

func (s *fallbackStore) active() Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return s.fallback
	}
	return s.primary
}

// shouldDegrade reports whether err is a storage failure on the primary.
func (s *fallbackStore) shouldDegrade(err error) bool {
	if err == nil || errors.Is(err, vmcp.ErrNotFound) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.degraded
}

func (s *fallbackStore) degrade(identity string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	logger.Warnw("draft storage failed, degrading to in-memory drafts",
		"identity", identity, "error", err)
}
