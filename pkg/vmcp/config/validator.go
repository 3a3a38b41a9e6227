// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

// Validator checks a snapshot before it is offered for publishing.
type Validator interface {
	// Validate returns an error wrapping vmcp.ErrValidationFailed listing
	// every problem found, or nil when the snapshot is publishable.
	Validate(s *Snapshot) error
}

// DefaultValidator implements pre-save validation of a snapshot.
// It runs locally before any network call; a failing snapshot never
// reaches the backend.
type DefaultValidator struct{}

// NewValidator creates a new snapshot validator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// Validate performs comprehensive validation of the snapshot.
func (v *DefaultValidator) Validate(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", vmcp.ErrValidationFailed)
	}

	var errs []string

	if err := v.validateBasicFields(s); err != nil {
		errs = append(errs, err.Error())
	}
	if err := v.validateServers(s); err != nil {
		errs = append(errs, err.Error())
	}
	if err := v.validateSelections(s); err != nil {
		errs = append(errs, err.Error())
	}
	if err := v.validateCustomItems(s); err != nil {
		errs = append(errs, err.Error())
	}
	if err := v.validateEnvironmentVariables(s); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", vmcp.ErrValidationFailed, strings.Join(errs, "\n  - "))
	}

	return nil
}

func (*DefaultValidator) validateBasicFields(s *Snapshot) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (*DefaultValidator) validateServers(s *Snapshot) error {
	seen := make(map[string]bool, len(s.SelectedServers))
	for i, srv := range s.SelectedServers {
		if srv.ServerID == "" {
			return fmt.Errorf("selectedServers[%d].serverId is required", i)
		}
		if seen[srv.ServerID] {
			return fmt.Errorf("duplicate server: %s", srv.ServerID)
		}
		seen[srv.ServerID] = true
	}
	return nil
}

func (*DefaultValidator) validateSelections(s *Snapshot) error {
	selections := map[string]map[string][]string{
		"selectedTools":     s.SelectedTools,
		"selectedPrompts":   s.SelectedPrompts,
		"selectedResources": s.SelectedResources,
	}

	for field, m := range selections {
		for serverID := range m {
			if !s.HasServer(serverID) {
				return fmt.Errorf("%s references server %s which is not selected", field, serverID)
			}
		}
	}
	return nil
}

func (*DefaultValidator) validateCustomItems(s *Snapshot) error {
	promptNames := make(map[string]bool, len(s.CustomPrompts))
	for i, p := range s.CustomPrompts {
		if p.Name == "" {
			return fmt.Errorf("customPrompts[%d].name is required", i)
		}
		if promptNames[p.Name] {
			return fmt.Errorf("duplicate custom prompt name: %s", p.Name)
		}
		promptNames[p.Name] = true
	}

	toolNames := make(map[string]bool, len(s.CustomTools))
	for i, tool := range s.CustomTools {
		if tool.Name == "" {
			return fmt.Errorf("customTools[%d].name is required", i)
		}
		if toolNames[tool.Name] {
			return fmt.Errorf("duplicate custom tool name: %s", tool.Name)
		}
		toolNames[tool.Name] = true
	}

	return nil
}

func (*DefaultValidator) validateEnvironmentVariables(s *Snapshot) error {
	names := make(map[string]bool, len(s.EnvironmentVariables))
	for i, ev := range s.EnvironmentVariables {
		if ev.Name == "" {
			return fmt.Errorf("environmentVariables[%d].name is required", i)
		}
		if names[ev.Name] {
			return fmt.Errorf("duplicate environment variable: %s", ev.Name)
		}
		names[ev.Name] = true
	}
	return nil
}
