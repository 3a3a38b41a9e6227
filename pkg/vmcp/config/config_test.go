package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

func TestNormalize_FillsAbsentCollections(t *testing.T) {
	t.Parallel()

	got, err := Normalize(&Snapshot{Identity: "vmcp-1", Name: "demo"})
	require.NoError(t, err)

	assert.NotNil(t, got.SelectedServers)
	assert.NotNil(t, got.SelectedTools)
	assert.NotNil(t, got.SelectedPrompts)
	assert.NotNil(t, got.SelectedResources)
	assert.NotNil(t, got.CustomPrompts)
	assert.NotNil(t, got.CustomTools)
	assert.NotNil(t, got.EnvironmentVariables)
	assert.NotNil(t, got.UploadedFiles)
	assert.NotNil(t, got.CustomResources)
	assert.NotNil(t, got.Metadata)
	assert.Empty(t, got.SelectedServers)
}

func TestNormalize_RequiresName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      *Snapshot
		wantErr bool
	}{
		{name: "nil snapshot", in: nil, wantErr: true},
		{name: "empty name", in: &Snapshot{Identity: "a"}, wantErr: true},
		{name: "whitespace only name", in: &Snapshot{Name: "   "}, wantErr: true},
		{name: "valid name", in: &Snapshot{Name: "demo"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Normalize(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, vmcp.ErrMalformedConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNormalize_TrimsScalars(t *testing.T) {
	t.Parallel()

	got, err := Normalize(&Snapshot{
		Name:         "  demo  ",
		Description:  " desc\n",
		SystemPrompt: SystemPrompt{Text: "  hello  "},
	})
	require.NoError(t, err)

	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, "hello", got.SystemPrompt.Text)
}

func TestNormalize_PurgesOrphanedSelections(t *testing.T) {
	t.Parallel()

	got, err := Normalize(&Snapshot{
		Name: "demo",
		SelectedServers: []SelectedServer{
			{ServerID: "s1", Name: "one", Enabled: true},
		},
		SelectedTools: map[string][]string{
			"s1": {"t1"},
			"s2": {"t2"}, // s2 was removed, its selections must go with it
		},
		SelectedPrompts: map[string][]string{
			"s2": {"p1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"s1": {"t1"}}, got.SelectedTools)
	assert.Empty(t, got.SelectedPrompts)
}

func TestNormalize_RecomputesToolCalls(t *testing.T) {
	t.Parallel()

	got, err := Normalize(&Snapshot{
		Name: "demo",
		SystemPrompt: SystemPrompt{
			Text: "Use @github.create_issue() then @slack.post_message(), and @github.create_issue() again",
			// Stale derived state must be replaced, never trusted.
			ToolCalls: []ToolCallRef{{Server: "stale", Tool: "ref"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []ToolCallRef{
		{Server: "github", Tool: "create_issue"},
		{Server: "slack", Tool: "post_message"},
	}, got.SystemPrompt.ToolCalls)
}

func TestNormalize_BackfillsUploadedFiles(t *testing.T) {
	t.Parallel()

	blobs := []BlobRef{{Name: "notes.txt", URI: "blob://notes"}}
	got, err := Normalize(&Snapshot{Name: "demo", CustomResources: blobs})
	require.NoError(t, err)

	assert.Equal(t, blobs, got.UploadedFiles)
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := &Snapshot{
		Name:            "demo",
		SelectedServers: []SelectedServer{{ServerID: "s1", Name: "one"}},
		SelectedTools:   map[string][]string{"s1": {"t1"}},
		Metadata:        map[string]string{"icon": "rocket"},
	}

	clone := orig.Clone()
	clone.SelectedServers[0].Name = "changed"
	clone.SelectedTools["s1"][0] = "changed"
	clone.Metadata["icon"] = "changed"

	assert.Equal(t, "one", orig.SelectedServers[0].Name)
	assert.Equal(t, "t1", orig.SelectedTools["s1"][0])
	assert.Equal(t, "rocket", orig.Metadata["icon"])
	assert.Empty(t, cmp.Diff(orig, orig.Clone()))
}

func TestSnapshot_MergeEnvironmentValues(t *testing.T) {
	t.Parallel()

	s := &Snapshot{
		Name: "demo",
		EnvironmentVariables: []EnvironmentVariable{
			{Name: "API_KEY", Required: true},
			{Name: "REGION", Value: "eu-west-1"},
		},
	}

	s.MergeEnvironmentValues(map[string]string{
		"API_KEY": "secret",
		"EXTRA":   "added",
	})

	require.Len(t, s.EnvironmentVariables, 3)
	assert.Equal(t, "secret", s.EnvironmentVariables[0].Value)
	assert.True(t, s.EnvironmentVariables[0].Required)
	assert.Equal(t, "eu-west-1", s.EnvironmentVariables[1].Value)
	assert.Equal(t, EnvironmentVariable{
		Name: "EXTRA", Value: "added", Required: false, Source: "user",
	}, s.EnvironmentVariables[2])
}

func TestIsNew(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNew(""))
	assert.True(t, IsNew(NewIdentity()))
	assert.False(t, IsNew("vmcp-8f2c"))
}

func TestDefaultValidator_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *Snapshot {
		return &Snapshot{
			Name:            "demo",
			SelectedServers: []SelectedServer{{ServerID: "s1", Name: "one"}},
			SelectedTools:   map[string][]string{"s1": {"t1"}},
			CustomTools:     []CustomTool{{Name: "summarize", Handler: "..."}},
			EnvironmentVariables: []EnvironmentVariable{
				{Name: "A"}, {Name: "B"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr string
	}{
		{
			name:   "valid snapshot",
			mutate: func(*Snapshot) {},
		},
		{
			name:    "missing name",
			mutate:  func(s *Snapshot) { s.Name = " " },
			wantErr: "name is required",
		},
		{
			name: "duplicate server",
			mutate: func(s *Snapshot) {
				s.SelectedServers = append(s.SelectedServers, SelectedServer{ServerID: "s1"})
			},
			wantErr: "duplicate server",
		},
		{
			name: "selection for unselected server",
			mutate: func(s *Snapshot) {
				s.SelectedTools["ghost"] = []string{"t9"}
			},
			wantErr: "not selected",
		},
		{
			name: "duplicate custom tool",
			mutate: func(s *Snapshot) {
				s.CustomTools = append(s.CustomTools, CustomTool{Name: "summarize"})
			},
			wantErr: "duplicate custom tool",
		},
		{
			name: "duplicate environment variable",
			mutate: func(s *Snapshot) {
				s.EnvironmentVariables = append(s.EnvironmentVariables, EnvironmentVariable{Name: "A"})
			},
			wantErr: "duplicate environment variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := valid()
			tt.mutate(s)

			err := NewValidator().Validate(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, vmcp.ErrValidationFailed)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
