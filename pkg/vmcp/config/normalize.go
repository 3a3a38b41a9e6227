// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

// toolCallPattern matches @server.tool() references in system prompt text,
// e.g. "@github.create_issue()". The backend resolves these at execution
// time; the console only records them so the edit surface can show badges.
var toolCallPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)\(`)

// Normalize returns a deep copy of raw brought into canonical form:
// scalar fields are whitespace-trimmed, every absent optional collection is
// replaced with an empty one so diffing never special-cases nil, selection
// entries for servers that are not selected are purged, uploaded files are
// backfilled from custom resources for legacy documents, and the system
// prompt's tool-call references are recomputed from its text.
//
// It fails with vmcp.ErrMalformedConfig iff a required scalar field (name)
// is missing after trimming. Missing optional collections are never an error.
func Normalize(raw *Snapshot) (*Snapshot, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", vmcp.ErrMalformedConfig)
	}

	s := raw.Clone()

	s.Identity = strings.TrimSpace(s.Identity)
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.SystemPrompt.Text = strings.TrimSpace(s.SystemPrompt.Text)

	if s.Name == "" {
		return nil, fmt.Errorf("%w: name is required", vmcp.ErrMalformedConfig)
	}

	if s.SelectedServers == nil {
		s.SelectedServers = []SelectedServer{}
	}
	if s.SelectedTools == nil {
		s.SelectedTools = map[string][]string{}
	}
	if s.SelectedPrompts == nil {
		s.SelectedPrompts = map[string][]string{}
	}
	if s.SelectedResources == nil {
		s.SelectedResources = map[string][]string{}
	}
	if s.CustomPrompts == nil {
		s.CustomPrompts = []CustomPrompt{}
	}
	if s.CustomTools == nil {
		s.CustomTools = []CustomTool{}
	}
	if s.EnvironmentVariables == nil {
		s.EnvironmentVariables = []EnvironmentVariable{}
	}
	if s.UploadedFiles == nil {
		s.UploadedFiles = []BlobRef{}
	}
	if s.CustomResources == nil {
		s.CustomResources = []BlobRef{}
	}
	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}

	// Legacy documents populated customResources before uploadedFiles existed.
	if len(s.UploadedFiles) == 0 && len(s.CustomResources) > 0 {
		s.UploadedFiles = cloneSlice(s.CustomResources)
	}

	s.PurgeOrphanedSelections()
	s.SystemPrompt.ToolCalls = ExtractToolCalls(s.SystemPrompt.Text)

	return s, nil
}

// PurgeOrphanedSelections removes entries from the selection maps whose
// server is no longer in SelectedServers. Removing a server must never
// leave its tool/prompt/resource selections behind.
func (s *Snapshot) PurgeOrphanedSelections() {
	for _, m := range []map[string][]string{s.SelectedTools, s.SelectedPrompts, s.SelectedResources} {
		for serverID := range m {
			if !s.HasServer(serverID) {
				delete(m, serverID)
			}
		}
	}
}

// ExtractToolCalls scans system prompt text for @server.tool() references
// and returns them in order of first appearance, de-duplicated.
func ExtractToolCalls(text string) []ToolCallRef {
	if text == "" {
		return nil
	}

	matches := toolCallPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[ToolCallRef]bool, len(matches))
	refs := make([]ToolCallRef, 0, len(matches))
	for _, m := range matches {
		ref := ToolCallRef{Server: m[1], Tool: m[2]}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// MergeEnvironmentValues overlays user-provided values onto the declared
// environment variables by name. Values for declared variables are updated
// in place; undeclared names are appended as optional variables.
func (s *Snapshot) MergeEnvironmentValues(values map[string]string) {
	byName := make(map[string]int, len(s.EnvironmentVariables))
	for i, ev := range s.EnvironmentVariables {
		byName[ev.Name] = i
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		if i, ok := byName[name]; ok {
			s.EnvironmentVariables[i].Value = value
			continue
		}
		s.EnvironmentVariables = append(s.EnvironmentVariables, EnvironmentVariable{
			Name:     name,
			Value:    value,
			Required: false,
			Source:   "user",
		})
	}
}
