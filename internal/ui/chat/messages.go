// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea messages and commands that connect the
// session's event feed and the backend health check to the update loop.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SessionEventMsg wraps one event from the session feed.
type SessionEventMsg struct {
	Event chat.Event
}

// BackendStatusMsg reports the result of a health probe.
type BackendStatusMsg struct {
	Online bool
	Err    error
}

// ConfigReloadedMsg carries the pieces of a validated config reload that the
// chat screen can apply while running. Nil fields are left unchanged.
type ConfigReloadedMsg struct {
	Theme  *styles.Theme
	Interp *chart.Interpreter
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForEvent blocks on the session feed and delivers the next event.
// The update loop re-issues it after handling each SessionEventMsg, so
// exactly one reader is pending at any time.
func waitForEvent(events <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return SessionEventMsg{Event: e}
	}
}

// checkBackendCmd probes the backend health endpoint.
func checkBackendCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return BackendStatusMsg{Online: false, Err: api.ErrUnreachable}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.CheckRunning(ctx)
		return BackendStatusMsg{Online: err == nil, Err: err}
	}
}
