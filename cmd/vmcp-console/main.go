// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the vMCP console CLI (vmcp-console).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vmcp-labs/vmcp-console/cmd/vmcp-console/app"
	"github.com/vmcp-labs/vmcp-console/pkg/logger"
)

func main() {
	// Create a context that will be canceled on signal
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	// Execute the root command with context
	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("Error executing command: %v", err)
		os.Exit(1)
	}
}
