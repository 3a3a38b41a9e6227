// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package diff computes categorized change sets between two configuration
// snapshots.
//
// The change set backs the save-confirmation surface: it is recomputed on
// demand, never persisted, and its three lists (updates, additions,
// deletions) are empty iff the draft matches the canonical snapshot.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// Change is one human-readable change descriptor.
type Change struct {
	// Path names the changed field, e.g. "name", "selectedServers" or
	// "selectedTools.s1".
	Path string `json:"path"`

	// Key identifies the changed item within a keyed collection. Empty for
	// scalar fields.
	Key string `json:"key,omitempty"`

	// Old and New carry the previous and new value where applicable.
	Old string `json:"old,omitempty"`
	New string `json:"new,omitempty"`
}

// String renders the change for the confirmation surface.
func (c Change) String() string {
	target := c.Path
	if c.Key != "" {
		target = fmt.Sprintf("%s[%s]", c.Path, c.Key)
	}
	if c.Old != "" || c.New != "" {
		return fmt.Sprintf("%s: %q -> %q", target, c.Old, c.New)
	}
	return target
}

// ChangeSet is the categorized diff between a canonical snapshot and a draft.
type ChangeSet struct {
	Updates   []Change `json:"updates"`
	Additions []Change `json:"additions"`
	Deletions []Change `json:"deletions"`
}

// HasChanges reports whether any change was recorded. This is the condition
// gating whether a save is actionable.
func (cs *ChangeSet) HasChanges() bool {
	return cs != nil && (len(cs.Updates) > 0 || len(cs.Additions) > 0 || len(cs.Deletions) > 0)
}

// Total returns the number of recorded changes across all categories.
func (cs *ChangeSet) Total() int {
	if cs == nil {
		return 0
	}
	return len(cs.Updates) + len(cs.Additions) + len(cs.Deletions)
}

// Summary renders the change set as a multi-line confirmation message.
func (cs *ChangeSet) Summary() string {
	if !cs.HasChanges() {
		return "no changes"
	}

	var b strings.Builder
	for _, c := range cs.Updates {
		fmt.Fprintf(&b, "~ %s\n", c)
	}
	for _, c := range cs.Additions {
		fmt.Fprintf(&b, "+ %s\n", c)
	}
	for _, c := range cs.Deletions {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Options controls how the diff is computed.
type Options struct {
	// CollapseSelectionDeletes reports the removal of every item from one
	// server's selection as a single deletion for that server, instead of
	// one deletion per item. The default (false) is per-item granularity.
	CollapseSelectionDeletes bool
}

// serverCmpOpts excludes backend-owned fields from server comparison.
// Status is reported by the backend on load and is not a user edit.
var serverCmpOpts = []cmp.Option{
	cmpopts.IgnoreFields(config.SelectedServer{}, "Status"),
}

// Compute produces the ChangeSet between canonical and draft.
//
// Scalars are compared by trimmed structural equality: a field that is both
// renamed and value-changed yields one update carrying the new value, never
// a deletion/addition pair. Keyed lists are compared as sets keyed by their
// identity field: order changes alone are not changes, and a changed
// identifier is modeled as deletion plus addition because identity is the
// list key. System prompt tool calls are derived state and never diffed.
func Compute(canonical, draft *config.Snapshot, opts Options) *ChangeSet {
	cs := &ChangeSet{}
	if canonical == nil {
		canonical = &config.Snapshot{}
	}
	if draft == nil {
		draft = &config.Snapshot{}
	}

	cs.scalar("name", canonical.Name, draft.Name)
	cs.scalar("description", canonical.Description, draft.Description)
	cs.scalar("systemPrompt.text", canonical.SystemPrompt.Text, draft.SystemPrompt.Text)

	diffKeyed(cs, "selectedServers",
		canonical.SelectedServers, draft.SelectedServers,
		func(s config.SelectedServer) string { return s.ServerID },
		serverCmpOpts...)
	diffKeyed(cs, "customPrompts",
		canonical.CustomPrompts, draft.CustomPrompts,
		func(p config.CustomPrompt) string { return p.Name })
	diffKeyed(cs, "customTools",
		canonical.CustomTools, draft.CustomTools,
		func(t config.CustomTool) string { return t.Name })
	diffKeyed(cs, "environmentVariables",
		canonical.EnvironmentVariables, draft.EnvironmentVariables,
		func(e config.EnvironmentVariable) string { return e.Name })
	diffKeyed(cs, "uploadedFiles",
		canonical.UploadedFiles, draft.UploadedFiles,
		func(b config.BlobRef) string { return b.URI })
	diffKeyed(cs, "customResources",
		canonical.CustomResources, draft.CustomResources,
		func(b config.BlobRef) string { return b.URI })

	cs.diffSelectionMap("selectedTools", canonical.SelectedTools, draft.SelectedTools, opts)
	cs.diffSelectionMap("selectedPrompts", canonical.SelectedPrompts, draft.SelectedPrompts, opts)
	cs.diffSelectionMap("selectedResources", canonical.SelectedResources, draft.SelectedResources, opts)

	cs.diffMetadata(canonical.Metadata, draft.Metadata)

	return cs
}

// scalar records an update iff the trimmed values differ.
func (cs *ChangeSet) scalar(path, oldVal, newVal string) {
	oldVal = strings.TrimSpace(oldVal)
	newVal = strings.TrimSpace(newVal)
	if oldVal != newVal {
		cs.Updates = append(cs.Updates, Change{Path: path, Old: oldVal, New: newVal})
	}
}

// diffKeyed compares two keyed lists as sets with stable display order.
func diffKeyed[T any](cs *ChangeSet, path string, canonical, draft []T, key func(T) string, opts ...cmp.Option) {
	canonicalByKey := make(map[string]T, len(canonical))
	for _, item := range canonical {
		canonicalByKey[key(item)] = item
	}
	draftByKey := make(map[string]T, len(draft))
	for _, item := range draft {
		draftByKey[key(item)] = item
	}

	// Draft order first for additions/updates, canonical order for deletions,
	// so the summary reads in display order.
	for _, item := range draft {
		k := key(item)
		old, existed := canonicalByKey[k]
		if !existed {
			cs.Additions = append(cs.Additions, Change{Path: path, Key: k})
			continue
		}
		if !cmp.Equal(old, item, opts...) {
			cs.Updates = append(cs.Updates, Change{Path: path, Key: k})
		}
	}
	for _, item := range canonical {
		k := key(item)
		if _, kept := draftByKey[k]; !kept {
			cs.Deletions = append(cs.Deletions, Change{Path: path, Key: k})
		}
	}
}

// diffSelectionMap compares a serverId -> identifiers map. Each server's
// list is diffed as a keyed list of identifiers. When
// CollapseSelectionDeletes is set and a server's selection ends up empty,
// one deletion is emitted for the server instead of one per item.
func (cs *ChangeSet) diffSelectionMap(path string, canonical, draft map[string][]string, opts Options) {
	for _, serverID := range unionKeys(canonical, draft) {
		oldItems := canonical[serverID]
		newItems := draft[serverID]
		itemPath := path + "." + serverID

		if opts.CollapseSelectionDeletes && len(newItems) == 0 && len(oldItems) > 0 {
			cs.Deletions = append(cs.Deletions, Change{Path: path, Key: serverID})
			continue
		}

		oldSet := toSet(oldItems)
		newSet := toSet(newItems)

		for _, id := range newItems {
			if !oldSet[id] {
				cs.Additions = append(cs.Additions, Change{Path: itemPath, Key: id})
			}
		}
		for _, id := range oldItems {
			if !newSet[id] {
				cs.Deletions = append(cs.Deletions, Change{Path: itemPath, Key: id})
			}
		}
	}
}

// diffMetadata compares the open metadata map key by key.
func (cs *ChangeSet) diffMetadata(canonical, draft map[string]string) {
	for _, k := range unionKeys(canonical, draft) {
		oldVal, hadOld := canonical[k]
		newVal, hasNew := draft[k]
		path := "metadata." + k

		switch {
		case hadOld && !hasNew:
			cs.Deletions = append(cs.Deletions, Change{Path: path, Old: oldVal})
		case !hadOld && hasNew:
			cs.Additions = append(cs.Additions, Change{Path: path, New: newVal})
		case oldVal != newVal:
			cs.Updates = append(cs.Updates, Change{Path: path, Old: oldVal, New: newVal})
		}
	}
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]bool, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, id := range items {
		set[id] = true
	}
	return set
}
