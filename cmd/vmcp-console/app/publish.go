// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// newSaveCmd creates the save command for publishing a draft
func newSaveCmd() *cobra.Command {
	var yes bool
	var collapse bool

	cmd := &cobra.Command{
		Use:   "save <identity>",
		Short: "Publish the draft of a vMCP configuration to the backend",
		Long: `Publish the draft of a vMCP configuration to the console backend.

The pending changes are listed first; pass --yes to confirm publishing.
A configuration started with 'new' is created, an existing one updated.
If the save fails, the local draft is kept untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), collapse)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			changes, err := s.RequestSave()
			if err != nil {
				return err
			}
			if !changes.HasChanges() {
				fmt.Println("No unsaved changes; nothing to publish")
				return nil
			}

			fmt.Println(changes.Summary())
			if !yes {
				fmt.Printf("\nRe-run with --yes to publish these %d change(s)\n", changes.Total())
				return nil
			}

			if err := s.ConfirmSave(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Published %s as %s\n", s.Snapshot().Name, s.Identity())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Publish without asking for confirmation")
	cmd.Flags().BoolVar(&collapse, "collapse", false,
		"Report removing a server's whole selection as one change")
	return cmd
}

// newDiscardCmd creates the discard command for dropping a draft
func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <identity>",
		Short: "Drop the local draft and reset to the published configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), resolveIdentity(args[0]), false)
			if err != nil {
				return err
			}
			defer closeSession(cmd.Context(), s)

			if err := s.Discard(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Draft for %s discarded\n", args[0])
			return nil
		},
	}
}

// newDraftsCmd creates the drafts command for listing stored drafts
func newDraftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List vMCP identities with a local draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := openDraftStore()
			identities, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing drafts: %w", err)
			}
			if len(identities) == 0 {
				fmt.Println("No local drafts")
				return nil
			}
			for _, identity := range identities {
				record, err := store.Get(context.Background(), identity)
				if err != nil {
					logger.Warnf("Reading draft %s: %v", identity, err)
					continue
				}
				fmt.Printf("%s\t%s\t%s\n",
					identity, record.Snapshot.Name, record.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

// newValidateCmd creates the validate command for checking a document offline
func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a vMCP configuration document",
		Long: `Validate a vMCP configuration document for structural and semantic errors
without contacting the backend.

This command checks:
- YAML syntax validity
- Required fields presence
- Selection references against the chosen servers
- Uniqueness of server, prompt, tool and environment variable names`,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			var doc config.Snapshot
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parsing %s: %w", file, err)
			}

			normalized, err := config.Normalize(&doc)
			if err != nil {
				return err
			}
			if err := config.NewValidator().Validate(normalized); err != nil {
				return err
			}

			fmt.Println("✓ Configuration is valid")
			fmt.Printf("  Name: %s\n", normalized.Name)
			fmt.Printf("  Servers: %d selected\n", len(normalized.SelectedServers))
			fmt.Printf("  Custom prompts: %d, custom tools: %d\n",
				len(normalized.CustomPrompts), len(normalized.CustomTools))
			if len(normalized.SystemPrompt.ToolCalls) > 0 {
				fmt.Printf("  Tool calls referenced by the system prompt: %d\n",
					len(normalized.SystemPrompt.ToolCalls))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML document to validate")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
