// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package vmcp provides the domain model for the vMCP console's
// configuration engine.
//
// A virtual MCP server (vMCP) is composed out of underlying MCP connectors,
// custom tools/prompts/resources, environment variables and metadata. The
// console edits that composition as a single document with draft-or-canonical
// semantics: the canonical snapshot is the last state confirmed by the
// backend, and a draft is the user's in-progress edit of it.
//
// The engine is split into bounded contexts, each in its own subpackage:
//
//	pkg/vmcp/
//	├── errors.go   // Domain errors, checked with errors.Is
//	├── config/     // Snapshot model, normalization, validation
//	├── draft/      // Durable draft persistence keyed by identity
//	├── diff/       // Categorized change sets between snapshots
//	├── session/    // Edit session state machine (load/edit/save/discard)
//	└── client/     // HTTP client for the console backend
//
// Data flows edit surface -> session.Edit -> draft store (debounced
// persist), and on save session -> diff -> backend client -> draft cleared
// -> canonical adopted. A session edits one identity at a time; switching
// flushes the old identity's pending draft writes and invalidates its
// in-flight load, which is what keeps one identity's draft from ever
// leaking into another's.
package vmcp
