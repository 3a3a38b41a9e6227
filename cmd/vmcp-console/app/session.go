// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/client"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/draft"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/session"
)

// appName keys the XDG data directory for local drafts.
const appName = "vmcp-console"

// openDraftStore returns the local draft store, degrading to in-memory
// storage when the data directory is unusable. A CLI invocation must never
// fail because drafts cannot be persisted.
func openDraftStore() draft.Store {
	store, err := draft.NewLocalStore(appName)
	if err != nil {
		logger.Warnf("Local draft storage unavailable, drafts will not survive this run: %v", err)
		return draft.NewMemoryStore()
	}
	return draft.NewFallbackStore(store)
}

// openSession builds a loaded session for the given identity using the
// backend from the persistent flags.
func openSession(ctx context.Context, identity string, collapse bool) (*session.Session, error) {
	backend, err := client.NewHTTPBackend(client.HTTPOptions{
		BaseURL:   viper.GetString("server"),
		AuthToken: viper.GetString("token"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	s, err := session.New(identity, session.Options{
		Backend:                  backend,
		Drafts:                   openDraftStore(),
		Notifier:                 session.LogNotifier{},
		CollapseSelectionDeletes: collapse,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Load(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("loading %s: %w", identity, err)
	}
	return s, nil
}

// closeSession flushes pending draft writes; failures are logged, not fatal.
func closeSession(ctx context.Context, s *session.Session) {
	if err := s.Close(ctx); err != nil {
		logger.Warnf("Closing session: %v", err)
	}
}
