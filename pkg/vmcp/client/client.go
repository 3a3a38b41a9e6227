// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package client provides the HTTP client for the vMCP console backend.
//
// The Backend interface is the seam the reconciliation session depends on;
// the HTTP implementation talks to the console's REST API and is the single
// place where backend responses are decoded and normalized. Tests and
// embedders inject their own Backend.
package client

import (
	"context"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// Backend is the console backend the configuration engine publishes to.
//
// Implementations must surface distinguishable failures: network problems
// wrap vmcp.ErrFetchFailed or vmcp.ErrPersistFailed, rejected documents
// wrap vmcp.ErrValidationFailed, and a missing vMCP wraps vmcp.ErrNotFound.
type Backend interface {
	// FetchConfiguration retrieves the canonical snapshot for a vMCP.
	FetchConfiguration(ctx context.Context, identity string) (*config.Snapshot, error)

	// CreateConfiguration publishes a new vMCP composition. The backend
	// assigns the identity; the returned snapshot carries it.
	CreateConfiguration(ctx context.Context, snapshot *config.Snapshot) (*config.Snapshot, error)

	// UpdateConfiguration replaces the configuration of an existing vMCP and
	// returns the enriched canonical snapshot.
	UpdateConfiguration(ctx context.Context, identity string, snapshot *config.Snapshot) (*config.Snapshot, error)
}
