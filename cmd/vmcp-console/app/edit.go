// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// resolveIdentity maps the CLI argument to a vMCP identity. The literal
// "new" starts an unsaved composition that will be created on save.
func resolveIdentity(arg string) string {
	if arg == "new" {
		return config.NewIdentity()
	}
	return arg
}

// newShowCmd creates the show command for printing a configuration
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity>",
		Short: "Show a vMCP configuration with the local draft applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), false)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			out, err := yaml.Marshal(s.Snapshot())
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			fmt.Print(string(out))

			if s.HasUnsavedChanges() {
				fmt.Fprintf(os.Stderr, "\n# %d unsaved change(s); run 'vmcp-console diff %s' to review\n",
					s.Changes().Total(), args[0])
			}
			return nil
		},
	}
}

// newEditCmd creates the edit command for applying a document to the draft
func newEditCmd() *cobra.Command {
	var file string
	var merge bool

	cmd := &cobra.Command{
		Use:   "edit <identity>",
		Short: "Apply a YAML document to a vMCP draft",
		Long: `Apply a YAML document to the draft of a vMCP configuration.

By default the document replaces the editable fields wholesale. With
--merge, only the fields present in the document are overlaid on the
current draft, so a sparse document can change one section at a time.

The result is kept as a local draft; nothing reaches the backend until
'vmcp-console save'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			var doc config.Snapshot
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parsing %s: %w", file, err)
			}

			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), false)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			var mergeErr error
			err = s.Edit(func(current *config.Snapshot) {
				if merge {
					// Overlay only the fields the document sets.
					mergeErr = mergo.Merge(current, &doc, mergo.WithOverride)
					return
				}
				identity := current.Identity
				*current = doc
				current.Identity = identity
			})
			if err == nil {
				err = mergeErr
			}
			if err != nil {
				return err
			}

			fmt.Printf("Draft updated; %d pending change(s)\n", s.Changes().Total())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML document to apply")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&merge, "merge", false, "Overlay only the fields present in the document")
	return cmd
}

// newSetCmd creates the set command for quick scalar edits
func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <identity> <field>=<value> [...]",
		Short: "Set scalar fields on a vMCP draft",
		Long: `Set scalar fields on the draft of a vMCP configuration.

Supported fields: name, description, systemPrompt.text.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments := make(map[string]string, len(args)-1)
			for _, arg := range args[1:] {
				field, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected <field>=<value>, got %q", arg)
				}
				switch field {
				case "name", "description", "systemPrompt.text":
					assignments[field] = value
				default:
					return fmt.Errorf("unknown field %q", field)
				}
			}

			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), false)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			err = s.Edit(func(current *config.Snapshot) {
				for field, value := range assignments {
					switch field {
					case "name":
						current.Name = value
					case "description":
						current.Description = value
					case "systemPrompt.text":
						current.SystemPrompt.Text = value
					}
				}
			})
			if err != nil {
				return err
			}

			fmt.Printf("Draft updated; %d pending change(s)\n", s.Changes().Total())
			return nil
		},
	}
}

// newDiffCmd creates the diff command for reviewing pending changes
func newDiffCmd() *cobra.Command {
	var collapse bool

	cmd := &cobra.Command{
		Use:   "diff <identity>",
		Short: "Show pending changes between the draft and the published configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), collapse)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			changes := s.Changes()
			if !changes.HasChanges() {
				fmt.Println("No unsaved changes")
				return nil
			}
			fmt.Println(changes.Summary())
			return nil
		},
	}

	cmd.Flags().BoolVar(&collapse, "collapse", false,
		"Report removing a server's whole selection as one change")
	return cmd
}
