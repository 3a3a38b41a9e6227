// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package session

import "github.com/vmcp-labs/vmcp-console/pkg/logger"

// Notifier surfaces save outcomes to the user. Implementations must be safe
// for concurrent use.
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

// NotifySuccess implements Notifier.
func (NoopNotifier) NotifySuccess(string) {}

// NotifyError implements Notifier.
func (NoopNotifier) NotifyError(string) {}

// LogNotifier routes notifications to the application log. It is the
// default surface for headless use where no interactive toast exists.
type LogNotifier struct{}

// NotifySuccess implements Notifier.
func (LogNotifier) NotifySuccess(message string) {
	logger.Info(message)
}

// NotifyError implements Notifier.
func (LogNotifier) NotifyError(message string) {
	logger.Error(message)
}
