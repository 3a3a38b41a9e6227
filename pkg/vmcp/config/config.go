// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package config provides the configuration model for the vMCP console.
//
// It defines the canonical shape of a vMCP composite document (the
// Snapshot) together with the equality rules the diff engine relies on,
// and a single normalization boundary through which every document loaded
// from the backend or from draft storage must pass.
package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewIdentityPrefix marks identities of snapshots that have not been saved
// to the backend yet. The backend assigns the real identity on create.
const NewIdentityPrefix = "new-"

// NewIdentity returns a sentinel identity for a new, unsaved snapshot.
func NewIdentity() string {
	return NewIdentityPrefix + uuid.NewString()
}

// IsNew reports whether the identity is a sentinel for an unsaved snapshot.
func IsNew(identity string) bool {
	return identity == "" || strings.HasPrefix(identity, NewIdentityPrefix)
}

// Snapshot is the full composite document for one vMCP.
//
// Identity is immutable once a snapshot is loaded from the backend; editing
// a different vMCP requires a new session, never in-place mutation.
// Collections are sets with stable display order: equality for diffing is by
// key identity, not array position.
type Snapshot struct {
	// Identity is the opaque vMCP id, or a NewIdentity sentinel for an
	// unsaved snapshot.
	Identity string `json:"id" yaml:"id"`

	// Name is the display name. Required after normalization.
	Name string `json:"name" yaml:"name"`

	// Description describes the vMCP's purpose.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// SystemPrompt is the system prompt configuration. Its ToolCalls are
	// derived from the text at normalization time and never diffed.
	SystemPrompt SystemPrompt `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`

	// SelectedServers lists the underlying MCP connectors composed into this
	// vMCP. Unique by ServerID.
	SelectedServers []SelectedServer `json:"selectedServers" yaml:"selectedServers"`

	// SelectedTools maps serverId to the tool identifiers selected from that
	// server. Absence of a key means no tools selected from that server.
	SelectedTools map[string][]string `json:"selectedTools" yaml:"selectedTools"`

	// SelectedPrompts maps serverId to selected prompt identifiers.
	SelectedPrompts map[string][]string `json:"selectedPrompts" yaml:"selectedPrompts"`

	// SelectedResources maps serverId to selected resource identifiers.
	SelectedResources map[string][]string `json:"selectedResources" yaml:"selectedResources"`

	// CustomPrompts are user-authored prompts, unique by Name.
	CustomPrompts []CustomPrompt `json:"customPrompts" yaml:"customPrompts"`

	// CustomTools are user-authored tools, unique by Name.
	CustomTools []CustomTool `json:"customTools" yaml:"customTools"`

	// EnvironmentVariables are the variables exposed to the vMCP. Name is
	// unique within the list.
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables" yaml:"environmentVariables"`

	// UploadedFiles are blob references for files uploaded through the console.
	UploadedFiles []BlobRef `json:"uploadedFiles" yaml:"uploadedFiles"`

	// CustomResources are blob references for user-provided resources.
	CustomResources []BlobRef `json:"customResources" yaml:"customResources"`

	// Metadata is an open string map (icon, author, url, ...).
	Metadata map[string]string `json:"metadata" yaml:"metadata"`

	// CreatedAt and UpdatedAt are set by the backend and carried opaquely.
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// SystemPrompt is the system prompt text plus its derived tool-call
// references.
type SystemPrompt struct {
	// Text is the prompt template text.
	Text string `json:"text" yaml:"text"`

	// Variables are the template variable names referenced by the text.
	Variables []string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// ToolCalls are the @server.tool() references found in Text. They are
	// recomputed by Normalize and must never be edited or diffed directly.
	ToolCalls []ToolCallRef `json:"toolCalls,omitempty" yaml:"toolCalls,omitempty"`
}

// ToolCallRef is a reference to a backend tool mentioned in a system prompt.
type ToolCallRef struct {
	// Server is the serverId part of the reference.
	Server string `json:"server" yaml:"server"`

	// Tool is the tool name part of the reference.
	Tool string `json:"tool" yaml:"tool"`
}

// SelectedServer is one underlying MCP connector composed into the vMCP.
type SelectedServer struct {
	// ServerID is the connector's identifier and the list key.
	ServerID string `json:"serverId" yaml:"serverId"`

	// Name is the connector's display name.
	Name string `json:"name" yaml:"name"`

	// Transport is the connector transport: "sse", "streamable-http" or "stdio".
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	// URL is the connector's base URL for network transports.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Enabled controls whether the connector participates in the composition.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Status is the last connection status reported by the backend. It is
	// backend-owned and excluded from diffing.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// CustomPrompt is a user-authored prompt entry. Name is the list key.
type CustomPrompt struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Template    string `json:"template" yaml:"template"`
}

// CustomTool is a user-authored tool entry. Name is the list key.
type CustomTool struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Handler is the tool implementation payload (prompt template, sandbox
	// script, ...) interpreted by the backend's custom tool engines.
	Handler string `json:"handler" yaml:"handler"`

	// HandlerType selects the backend engine: "prompt", "python", "sandbox".
	HandlerType string `json:"handlerType,omitempty" yaml:"handlerType,omitempty"`
}

// EnvironmentVariable is one variable exposed to the vMCP. Name is the
// list key.
type EnvironmentVariable struct {
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value,omitempty" yaml:"value,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`

	// Source records where the value came from ("user", "imported", ...).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// BlobRef is a reference to an uploaded or externally hosted blob.
// URI is the list key.
type BlobRef struct {
	Name        string `json:"name" yaml:"name"`
	URI         string `json:"uri" yaml:"uri"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty" yaml:"sizeBytes,omitempty"`
}

// Clone returns a deep copy of the snapshot. Every layer of the engine
// operates on copies so that callers can never mutate shared state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	out := *s
	out.SystemPrompt.Variables = cloneSlice(s.SystemPrompt.Variables)
	out.SystemPrompt.ToolCalls = cloneSlice(s.SystemPrompt.ToolCalls)
	out.SelectedServers = cloneSlice(s.SelectedServers)
	out.SelectedTools = cloneSelectionMap(s.SelectedTools)
	out.SelectedPrompts = cloneSelectionMap(s.SelectedPrompts)
	out.SelectedResources = cloneSelectionMap(s.SelectedResources)
	out.CustomPrompts = cloneSlice(s.CustomPrompts)
	out.CustomTools = cloneSlice(s.CustomTools)
	out.EnvironmentVariables = cloneSlice(s.EnvironmentVariables)
	out.UploadedFiles = cloneSlice(s.UploadedFiles)
	out.CustomResources = cloneSlice(s.CustomResources)
	out.Metadata = cloneStringMap(s.Metadata)
	return &out
}

// HasServer reports whether the snapshot selects the given server.
func (s *Snapshot) HasServer(serverID string) bool {
	for _, srv := range s.SelectedServers {
		if srv.ServerID == serverID {
			return true
		}
	}
	return false
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneSelectionMap(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneSlice(v)
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
