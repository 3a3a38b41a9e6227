// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the vmcp-console command-line application.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/versions"
)

var rootCmd = &cobra.Command{
	Use:               "vmcp-console",
	DisableAutoGenTag: true,
	Short:             "vMCP console - edit and publish virtual MCP configurations",
	Long: `vMCP console (vmcp-console) manages the configurations of virtual MCP
(Model Context Protocol) servers through the console backend. It provides:

- Draft editing with automatic local persistence
- Categorized change review before publishing
- Validation of compositions before they reach the backend
- Safe reconciliation: a failed fetch or save never loses unsaved work

Drafts are stored per vMCP identity under the XDG data directory, so work
in progress survives restarts and is picked up by the next session.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the vmcp-console CLI.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:8000", "Console backend base URL")
	err = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	if err != nil {
		logger.Errorf("Error binding server flag: %v", err)
	}

	rootCmd.PersistentFlags().String("token", "", "Bearer token for the console backend")
	err = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	if err != nil {
		logger.Errorf("Error binding token flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newSetCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newSaveCmd())
	rootCmd.AddCommand(newDiscardCmd())
	rootCmd.AddCommand(newDraftsCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for vmcp-console",
		Run: func(_ *cobra.Command, _ []string) {
			info := versions.GetVersionInfo()
			fmt.Printf("vmcp-console version: %s\n", info.Version)
			fmt.Printf("  Commit: %s\n", info.Commit)
			fmt.Printf("  Built: %s\n", info.BuildDate)
			fmt.Printf("  Go: %s (%s)\n", info.GoVersion, info.Platform)
		},
	}
}
