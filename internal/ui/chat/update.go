// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/render"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case BackendStatusMsg:
		m.online = msg.Online
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	contentWidth := msg.Width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	if r, err := render.NewRenderer(contentWidth, m.interp); err == nil {
		m.renderer = r
	}

	viewportHeight := msg.Height - headerHeight - statusHeight - inputHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(msg.Width - 4)

	m.refreshViewport(true)
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// handleConfigReload swaps the theme and chart vocabulary in place and
// re-renders the transcript with the new settings.
func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Theme != nil {
		msg.Theme.SetSize(m.width, m.height)
		m.theme = msg.Theme
		m.spinner.Style = m.theme.Spinner
	}
	if msg.Interp != nil {
		m.interp = msg.Interp
	}

	contentWidth := m.width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	if r, err := render.NewRenderer(contentWidth, m.interp); err == nil {
		m.renderer = r
	}

	m.refreshViewport(false)
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Abort()
		m.persist()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Abort):
		if m.session.IsStreaming() {
			m.session.Abort()
		}
		m.errText = ""
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.persist()
		m.session.Reset()
		m.errText = ""
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}

	err := m.session.Submit(context.Background(), prompt)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		return m, nil
	}
	if err != nil {
		m.errText = friendlyError(err)
		return m, nil
	}

	m.input.Reset()
	m.errText = ""
	m.refreshViewport(true)
	return m, nil
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m Model) handleSessionEvent(e chat.Event) (tea.Model, tea.Cmd) {
	switch e.Kind {
	case chat.EventAppend, chat.EventSources, chat.EventStep:
		m.refreshViewport(true)

	case chat.EventDone, chat.EventAborted:
		m.refreshViewport(true)
		m.persist()

	case chat.EventError:
		m.errText = friendlyError(e.Err)
		m.refreshViewport(true)
		m.persist()
	}

	return m, waitForEvent(m.session.Events())
}

// =============================================================================
// HELPERS
// =============================================================================

// refreshViewport rebuilds the transcript. followTail keeps the view pinned
// to the newest content while an answer is streaming in.
func (m *Model) refreshViewport(followTail bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if followTail && (atBottom || m.session.IsStreaming()) {
		m.viewport.GotoBottom()
	}
}

// persist writes the conversation to the local cache and the search archive.
// Both are best effort; the backend remains the source of truth.
func (m *Model) persist() {
	conv := m.session.Conversation()
	if conv == nil || conv.ChatID == "" {
		return
	}
	if m.Store != nil {
		if err := m.Store.Save(conv); err != nil && m.Logger != nil {
			m.Logger.Printf("ui: cache save failed: %v", err)
		}
	}
	if m.Archive != nil {
		if err := m.Archive.RecordConversation(context.Background(), conv); err != nil && m.Logger != nil {
			m.Logger.Printf("ui: archive record failed: %v", err)
		}
	}
}

// friendlyError maps transport errors to a short actionable line.
func friendlyError(err error) string {
	switch {
	case err == nil:
		return ""
	case api.IsUnreachable(err):
		return "Backend is not reachable. Is the TradeBerg service running?"
	case api.IsTimeout(err):
		return "The backend took too long to respond."
	case api.IsChatNotFound(err):
		return "This chat no longer exists on the backend."
	case errors.Is(err, api.ErrRateLimited):
		return "Rate limited. Give it a moment and try again."
	default:
		return err.Error()
	}
}
