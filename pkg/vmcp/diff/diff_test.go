package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

func sampleSnapshot() *config.Snapshot {
	return &config.Snapshot{
		Identity:    "vmcp-1",
		Name:        "demo",
		Description: "a demo vmcp",
		SystemPrompt: config.SystemPrompt{
			Text: "You are a helpful assistant",
		},
		SelectedServers: []config.SelectedServer{
			{ServerID: "s1", Name: "github", Enabled: true, Status: "connected"},
			{ServerID: "s2", Name: "slack", Enabled: true},
		},
		SelectedTools: map[string][]string{
			"s1": {"create_issue", "list_issues"},
			"s2": {"post_message"},
		},
		CustomTools: []config.CustomTool{
			{Name: "summarize", Handler: "...", HandlerType: "prompt"},
		},
		EnvironmentVariables: []config.EnvironmentVariable{
			{Name: "A", Value: "1"},
			{Name: "B", Value: "2"},
		},
		Metadata: map[string]string{"icon": "rocket"},
	}
}

func TestCompute_Reflexivity(t *testing.T) {
	t.Parallel()

	s := sampleSnapshot()
	cs := Compute(s, s.Clone(), Options{})

	assert.False(t, cs.HasChanges())
	assert.Empty(t, cs.Updates)
	assert.Empty(t, cs.Additions)
	assert.Empty(t, cs.Deletions)
	assert.Equal(t, "no changes", cs.Summary())
}

func TestCompute_AddDeleteSymmetryUnderSwap(t *testing.T) {
	t.Parallel()

	a := sampleSnapshot()
	b := sampleSnapshot()
	b.SelectedServers = append(b.SelectedServers, config.SelectedServer{ServerID: "s3", Name: "jira"})
	b.SelectedTools["s3"] = []string{"create_ticket"}
	b.EnvironmentVariables = b.EnvironmentVariables[:1]

	forward := Compute(a, b, Options{})
	backward := Compute(b, a, Options{})

	keys := func(changes []Change) []string {
		out := make([]string, len(changes))
		for i, c := range changes {
			out[i] = c.Path + "/" + c.Key
		}
		return out
	}

	assert.ElementsMatch(t, keys(forward.Additions), keys(backward.Deletions))
	assert.ElementsMatch(t, keys(forward.Deletions), keys(backward.Additions))
}

func TestCompute_ScalarRenameIsOneUpdate(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.Name = "renamed"
	draft.Description = "a different purpose"

	cs := Compute(canonical, draft, Options{})

	require.Len(t, cs.Updates, 2)
	assert.Empty(t, cs.Additions)
	assert.Empty(t, cs.Deletions)
	assert.Equal(t, Change{Path: "name", Old: "demo", New: "renamed"}, cs.Updates[0])
}

func TestCompute_ScalarWhitespaceOnlyIsNotAChange(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.Description = "  " + canonical.Description + "\n"

	assert.False(t, Compute(canonical, draft, Options{}).HasChanges())
}

func TestCompute_OrderChangeAloneIsNotAChange(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.SelectedServers[0], draft.SelectedServers[1] = draft.SelectedServers[1], draft.SelectedServers[0]
	draft.SelectedTools["s1"] = []string{"list_issues", "create_issue"}
	draft.EnvironmentVariables[0], draft.EnvironmentVariables[1] = draft.EnvironmentVariables[1], draft.EnvironmentVariables[0]

	assert.False(t, Compute(canonical, draft, Options{}).HasChanges())
}

func TestCompute_ServerStatusIsNotAUserEdit(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.SelectedServers[0].Status = "disconnected"

	assert.False(t, Compute(canonical, draft, Options{}).HasChanges())
}

func TestCompute_KeyedListAddUpdateDelete(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.SelectedServers = append(draft.SelectedServers, config.SelectedServer{ServerID: "s3", Name: "jira"})
	draft.SelectedServers[1].Enabled = false                 // update s2
	draft.CustomTools = nil                                  // delete summarize
	draft.SelectedTools["s3"] = []string{"create_ticket"}    // addition under new server
	draft.SelectedTools["s1"] = []string{"create_issue"}     // delete list_issues
	draft.Metadata = map[string]string{"icon": "lightbulb"}  // update metadata key

	cs := Compute(canonical, draft, Options{})

	assert.Contains(t, cs.Additions, Change{Path: "selectedServers", Key: "s3"})
	assert.Contains(t, cs.Additions, Change{Path: "selectedTools.s3", Key: "create_ticket"})
	assert.Contains(t, cs.Updates, Change{Path: "selectedServers", Key: "s2"})
	assert.Contains(t, cs.Updates, Change{Path: "metadata.icon", Old: "rocket", New: "lightbulb"})
	assert.Contains(t, cs.Deletions, Change{Path: "customTools", Key: "summarize"})
	assert.Contains(t, cs.Deletions, Change{Path: "selectedTools.s1", Key: "list_issues"})
}

func TestCompute_EnvVarRenameIsDeletePlusAdd(t *testing.T) {
	t.Parallel()

	canonical := sampleSnapshot()
	draft := canonical.Clone()
	draft.EnvironmentVariables[0].Name = "C" // rename A -> C

	cs := Compute(canonical, draft, Options{})

	require.Len(t, cs.Additions, 1)
	require.Len(t, cs.Deletions, 1)
	assert.Empty(t, cs.Updates)
	assert.Equal(t, Change{Path: "environmentVariables", Key: "C"}, cs.Additions[0])
	assert.Equal(t, Change{Path: "environmentVariables", Key: "A"}, cs.Deletions[0])
}

func TestCompute_SelectionDeletes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     Options
		wantDels []Change
	}{
		{
			name: "per-item granularity by default",
			opts: Options{},
			wantDels: []Change{
				{Path: "selectedTools.s1", Key: "create_issue"},
				{Path: "selectedTools.s1", Key: "list_issues"},
			},
		},
		{
			name:     "collapsed to one line per server",
			opts:     Options{CollapseSelectionDeletes: true},
			wantDels: []Change{{Path: "selectedTools", Key: "s1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			canonical := sampleSnapshot()
			draft := canonical.Clone()
			delete(draft.SelectedTools, "s1")

			cs := Compute(canonical, draft, tt.opts)
			assert.Equal(t, tt.wantDels, cs.Deletions)
		})
	}
}

func TestCompute_NilSnapshotsAreEmpty(t *testing.T) {
	t.Parallel()

	cs := Compute(nil, sampleSnapshot(), Options{})
	assert.True(t, cs.HasChanges())
	assert.NotEmpty(t, cs.Additions)

	assert.False(t, Compute(nil, nil, Options{}).HasChanges())
}

func TestChangeSet_Summary(t *testing.T) {
	t.Parallel()

	cs := &ChangeSet{
		Updates:   []Change{{Path: "name", Old: "a", New: "b"}},
		Additions: []Change{{Path: "selectedServers", Key: "s1"}},
		Deletions: []Change{{Path: "environmentVariables", Key: "A"}},
	}

	summary := cs.Summary()
	assert.Contains(t, summary, `~ name: "a" -> "b"`)
	assert.Contains(t, summary, "+ selectedServers[s1]")
	assert.Contains(t, summary, "- environmentVariables[A]")
	assert.Equal(t, 3, cs.Total())
}
