// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/tradeberg/berg-tui/internal/model"
	"github.com/tradeberg/berg-tui/internal/render"
)

// Fixed row counts used for viewport sizing.
const (
	headerHeight = 3
	statusHeight = 1
)

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting TradeBerg..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.inputView())
	return b.String()
}

func (m Model) headerView() string {
	title := m.theme.HeaderTitle.Render("TradeBerg")
	subtitle := m.theme.HeaderSubtitle.Render("market intelligence terminal")
	return m.theme.Header.Width(m.width - 2).Render(title + "  " + subtitle)
}

func (m Model) statusView() string {
	var left string
	if m.online {
		left = m.theme.StatusOnline.Render("* online")
	} else {
		left = m.theme.StatusOffline.Render("o offline")
	}

	if m.session.IsStreaming() {
		left += "  " + m.spinner.View() + m.theme.ThinkingText.Render("streaming")
	}

	if m.errText != "" {
		left += "  " + m.theme.ErrorTitle.Render(m.errText)
	}

	var hints []string
	if m.showHelp {
		for _, group := range m.keys.FullHelp() {
			for _, binding := range group {
				hints = append(hints, m.theme.ShortcutKey.Render(binding.Help().Key)+
					" "+m.theme.ShortcutDesc.Render(binding.Help().Desc))
			}
		}
	} else {
		for _, binding := range m.keys.ShortHelp() {
			hints = append(hints, m.theme.ShortcutKey.Render(binding.Help().Key)+
				" "+m.theme.ShortcutDesc.Render(binding.Help().Desc))
		}
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) inputView() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderConversation builds the viewport content from the conversation.
func (m Model) renderConversation() string {
	conv := m.session.Conversation()
	if conv == nil || conv.IsEmpty() {
		return m.welcomeView()
	}

	var parts []string
	for _, msg := range conv.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg *model.Message) string {
	if msg.Role == model.RoleUser {
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.UserBubble.Render(msg.Content())
	}

	var b strings.Builder
	b.WriteString(m.theme.AnswerLabel.Render(msg.Role.DisplayName()))
	b.WriteString("\n")

	if msg.IsThinking() && msg.IsEmpty() {
		step := "Analyzing markets"
		if steps := msg.SearchSteps(); len(steps) > 0 {
			step = steps[len(steps)-1]
		}
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.StepText.Render(step + "..."))
		return b.String()
	}

	b.WriteString(m.theme.AnswerBubble.Render(m.renderer.Message(msg.Content())))

	if msg.Aborted() {
		b.WriteString("\n")
		b.WriteString(m.theme.AbortedTag.Render("(answer stopped)"))
	}

	if footer := render.SourcesFooter(msg.Sources()); footer != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.SourcesBlock.Render(footer))
	}

	return b.String()
}

func (m Model) welcomeView() string {
	tip := m.theme.WelcomeTip.Render("Ask about prices, trends or companies.\nPress Enter to send, Ctrl+C to quit.")
	body := m.theme.HeaderTitle.Render("Welcome to TradeBerg") + "\n\n" + tip
	return m.theme.WelcomeBox.Render(body)
}
