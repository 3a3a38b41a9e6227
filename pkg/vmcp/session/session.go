// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package session coordinates the edit lifecycle of a single vMCP
// configuration: loading the canonical document from the backend, overlaying
// a locally persisted draft, tracking in-progress edits, and publishing the
// result back.
//
// A session moves through a small set of states. Loading and saving are the
// only states with an operation in flight; every accessor stays usable in
// all of them. A failed fetch never destroys a local draft, and a save that
// fails leaves the draft exactly where it was.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dario.cat/mergo"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/client"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/diff"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/draft"
)

// State describes what the session is currently doing.
type State string

const (
	// StateIdle means no configuration has been loaded yet.
	StateIdle State = "idle"
	// StateLoading means a canonical fetch is in flight.
	StateLoading State = "loading"
	// StateReady means the working copy is editable.
	StateReady State = "ready"
	// StateSaving means a publish is in flight; edits are deferred.
	StateSaving State = "saving"
	// StateError means the last load failed. The stored draft survives; a
	// retry or discard leaves this state. A failed save returns to
	// StateReady instead, the working copy and draft intact.
	StateError State = "error"
)

// Options configures a session. Backend and Drafts are required; everything
// else has a default.
type Options struct {
	// Backend publishes and fetches canonical configurations.
	Backend client.Backend

	// Drafts persists unsaved work between sessions.
	Drafts draft.Store

	// Notifier receives user-facing outcome messages.
	Notifier Notifier

	// Validator checks the working copy before a save is offered.
	Validator config.Validator

	// DebounceWindow batches draft writes during rapid editing.
	DebounceWindow time.Duration

	// CollapseSelectionDeletes reports the removal of a server's whole
	// selection as one change instead of one per item.
	CollapseSelectionDeletes bool
}

// defaultOptions returns the defaults merged into sparse Options.
func defaultOptions() Options {
	return Options{
		Notifier:       NoopNotifier{},
		Validator:      config.NewValidator(),
		DebounceWindow: 500 * time.Millisecond,
	}
}

// Session manages the draft-and-reconcile lifecycle for one vMCP identity
// at a time. All methods are safe for concurrent use.
type Session struct {
	backend   client.Backend
	drafts    draft.Store
	notifier  Notifier
	validator config.Validator
	diffOpts  diff.Options

	debouncer *draft.Debouncer

	mu         sync.Mutex
	identity   string
	generation uint64
	state      State
	canonical  *config.Snapshot
	working    *config.Snapshot
	lastErr    error
	saving     bool
	closed     bool
}

// New creates a session for the given identity. The identity may be an
// unsaved one from config.NewIdentity; such sessions publish with create
// instead of update.
func New(identity string, opts Options) (*Session, error) {
	if err := mergo.Merge(&opts, defaultOptions()); err != nil {
		return nil, fmt.Errorf("applying session defaults: %w", err)
	}
	if opts.Backend == nil {
		return nil, errors.New("session requires a backend client")
	}
	if opts.Drafts == nil {
		return nil, errors.New("session requires a draft store")
	}
	if identity == "" {
		return nil, errors.New("session requires an identity")
	}

	s := &Session{
		backend:   opts.Backend,
		drafts:    opts.Drafts,
		notifier:  opts.Notifier,
		validator: opts.Validator,
		diffOpts:  diff.Options{CollapseSelectionDeletes: opts.CollapseSelectionDeletes},
		identity:  identity,
		state:     StateIdle,
	}
	s.debouncer = draft.NewDebouncer(opts.Drafts, opts.DebounceWindow)
	s.debouncer.OnError(func(identity string, err error) {
		logger.Warnw("draft write failed", "identity", identity, "error", err)
	})
	return s, nil
}

// Identity returns the identity the session currently edits.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error behind StateError, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a copy of the working configuration, or nil before the
// first successful load.
func (s *Session) Snapshot() *config.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Canonical returns a copy of the last known published configuration.
func (s *Session) Canonical() *config.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonical.Clone()
}

// Load fetches the canonical configuration and overlays any persisted draft
// on top of it. A draft always wins over the canonical document: the user's
// unsaved work is what they expect to see after a reload.
//
// If the session is switched to another identity while the fetch is in
// flight, the stale result is discarded instead of overwriting the new
// identity's state.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return vmcp.ErrSessionClosed
	}
	s.generation++
	generation := s.generation
	identity := s.identity
	s.state = StateLoading
	s.lastErr = nil
	s.mu.Unlock()

	canonical, err := s.fetchCanonical(ctx, identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		// A switch or reload superseded this fetch.
		logger.Debugf("discarding stale load for %s", identity)
		return nil
	}

	if err != nil {
		// The draft, if any, stays in the store untouched.
		s.state = StateError
		s.lastErr = err
		return err
	}

	s.canonical = canonical
	s.working = s.overlayDraftLocked(ctx, canonical)
	s.state = StateReady
	return nil
}

// Switch repoints the session at another identity and loads it. Pending
// draft writes for the previous identity are flushed first so nothing is
// lost, and any in-flight load for it is invalidated.
func (s *Session) Switch(ctx context.Context, identity string) error {
	if identity == "" {
		return errors.New("switch requires an identity")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return vmcp.ErrSessionClosed
	}
	if err := s.debouncer.Flush(context.Background()); err != nil {
		logger.Warnw("flushing drafts on switch", "identity", s.identity, "error", err)
	}
	s.generation++
	s.identity = identity
	s.canonical = nil
	s.working = nil
	s.lastErr = nil
	s.state = StateIdle
	s.mu.Unlock()

	return s.Load(ctx)
}

// fetchCanonical resolves the canonical snapshot. Unsaved identities have
// no backend document yet; their canonical is an empty named configuration.
func (s *Session) fetchCanonical(ctx context.Context, identity string) (*config.Snapshot, error) {
	if config.IsNew(identity) {
		return config.Normalize(&config.Snapshot{Identity: identity, Name: "untitled"})
	}
	return s.backend.FetchConfiguration(ctx, identity)
}

// overlayDraftLocked returns the draft snapshot when one exists for the
// current identity, otherwise a copy of the canonical document. Unreadable
// drafts are logged and skipped, never fatal. Caller holds s.mu.
func (s *Session) overlayDraftLocked(ctx context.Context, canonical *config.Snapshot) *config.Snapshot {
	record, err := s.drafts.Get(ctx, s.identity)
	if err != nil {
		if !errors.Is(err, vmcp.ErrNotFound) {
			logger.Warnw("reading draft", "identity", s.identity, "error", err)
		}
		return canonical.Clone()
	}

	restored, err := config.Normalize(record.Snapshot)
	if err != nil {
		logger.Warnw("discarding malformed draft", "identity", s.identity, "error", err)
		return canonical.Clone()
	}
	restored.Identity = s.identity
	return restored
}

// Edit applies a mutation to the working copy. The result is normalized, so
// selections referencing removed servers are purged and derived fields are
// recomputed, then queued for draft persistence.
func (s *Session) Edit(mutate func(*config.Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return vmcp.ErrSessionClosed
	case s.state == StateSaving:
		return fmt.Errorf("%w: cannot edit while saving", vmcp.ErrSaveInFlight)
	case s.working == nil:
		return errors.New("no configuration loaded")
	}

	candidate := s.working.Clone()
	mutate(candidate)
	candidate.Identity = s.identity

	normalized, err := config.Normalize(candidate)
	if err != nil {
		return err
	}
	s.working = normalized

	s.debouncer.Put(s.identity, &draft.Record{
		Identity: s.identity,
		Snapshot: normalized,
	})
	return nil
}

// Changes computes the pending change set between canonical and working.
func (s *Session) Changes() *diff.ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return diff.Compute(s.canonical, s.working, s.diffOpts)
}

// HasUnsavedChanges reports whether the working copy differs from the
// canonical document.
func (s *Session) HasUnsavedChanges() bool {
	return s.Changes().HasChanges()
}

// ChangeSummary renders the pending changes as a confirmation message.
func (s *Session) ChangeSummary() string {
	return s.Changes().Summary()
}

// RequestSave validates the working copy and returns the change set a save
// would publish. Validation failures surface before any network call, and
// an empty change set means there is nothing to save.
func (s *Session) RequestSave() (*diff.ChangeSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.working == nil {
		return nil, errors.New("no configuration loaded")
	}
	if err := s.validator.Validate(s.working); err != nil {
		return nil, err
	}
	return diff.Compute(s.canonical, s.working, s.diffOpts), nil
}

// ConfirmSave publishes the working copy. New identities are created, saved
// ones updated. On success the server's response becomes the new canonical
// document and the draft is cleared; on failure the draft survives so
// nothing is lost. Only one save can be in flight at a time.
func (s *Session) ConfirmSave(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return vmcp.ErrSessionClosed
	case s.saving:
		s.mu.Unlock()
		return fmt.Errorf("%w: a save is already in progress", vmcp.ErrSaveInFlight)
	case s.working == nil:
		s.mu.Unlock()
		return errors.New("no configuration loaded")
	}
	if err := s.validator.Validate(s.working); err != nil {
		s.mu.Unlock()
		return err
	}
	s.saving = true
	s.state = StateSaving
	identity := s.identity
	payload := s.working.Clone()
	s.mu.Unlock()

	// Flush so the draft on disk reflects what is about to be published; if
	// the save fails the stored draft still matches the working copy.
	if err := s.debouncer.Flush(ctx); err != nil {
		logger.Warnw("flushing draft before save", "identity", identity, "error", err)
	}

	saved, err := s.publish(ctx, identity, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if err != nil {
		// Stay editable: the working copy and draft are intact, the user can
		// fix the problem or just retry.
		s.state = StateReady
		s.lastErr = err
		s.notifier.NotifyError(fmt.Sprintf("Failed to save %s: %v", payload.Name, err))
		return err
	}

	previous := s.identity
	s.identity = saved.Identity
	s.canonical = saved
	s.working = saved.Clone()
	s.state = StateReady
	s.lastErr = nil
	s.generation++ // invalidate any in-flight load

	// The published document supersedes the draft.
	s.debouncer.Cancel(previous)
	if err := s.drafts.Clear(context.Background(), previous); err != nil {
		logger.Warnw("clearing draft after save", "identity", previous, "error", err)
	}

	s.notifier.NotifySuccess(fmt.Sprintf("Saved %s", saved.Name))
	return nil
}

// publish routes to create or update based on whether the identity has ever
// been saved.
func (s *Session) publish(ctx context.Context, identity string, snapshot *config.Snapshot) (*config.Snapshot, error) {
	if config.IsNew(identity) {
		return s.backend.CreateConfiguration(ctx, snapshot)
	}
	return s.backend.UpdateConfiguration(ctx, identity, snapshot)
}

// Discard drops all unsaved work: the pending debounce, the stored draft,
// and the working copy, which resets to the canonical document.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vmcp.ErrSessionClosed
	}

	s.debouncer.Cancel(s.identity)
	if err := s.drafts.Clear(ctx, s.identity); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}

	if s.canonical != nil {
		s.working = s.canonical.Clone()
		s.state = StateReady
	} else {
		// The initial load never succeeded, so with the draft gone there
		// is nothing loaded anymore.
		s.working = nil
		s.state = StateIdle
	}
	s.lastErr = nil
	return nil
}

// Close flushes any pending draft write and releases the session. Edits
// made moments before closing are not lost.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return vmcp.ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	return s.debouncer.Close(ctx)
}
