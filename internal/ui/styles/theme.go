// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Active palette
	Palette Palette

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble   lipgloss.Style
	AnswerBubble lipgloss.Style
	UserLabel    lipgloss.Style
	AnswerLabel  lipgloss.Style
	AbortedTag   lipgloss.Style
	StepText     lipgloss.Style
	SourcesBlock lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar     lipgloss.Style
	StatusOnline  lipgloss.Style
	StatusOffline lipgloss.Style
	ShortcutKey   lipgloss.Style
	ShortcutDesc  lipgloss.Style

	// ==========================================================================
	// STREAMING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// ERROR AND EMPTY STATES
	// ==========================================================================

	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style
	WelcomeBox lipgloss.Style
	WelcomeTip lipgloss.Style

	// ==========================================================================
	// MARKET SEMANTICS
	// ==========================================================================

	Gain lipgloss.Style
	Loss lipgloss.Style
}

// NewTheme creates a theme for a named palette. Unknown names fall back to
// the default berg palette.
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
		Palette:      PaletteByName(name),
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles from the active palette.
func (t *Theme) initStyles() {
	p := t.Palette

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.AccentAlt).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.UserBorder).
		BorderLeft(true).
		PaddingLeft(1).
		MarginLeft(2)

	t.AnswerBubble = lipgloss.NewStyle().
		Foreground(p.AnswerFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.AnswerBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.UserBorder).
		MarginLeft(2)

	t.AnswerLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.AbortedTag = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.StepText = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	t.SourcesBlock = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		PaddingLeft(1)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.AccentAlt).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Foreground(p.TextSecondary).
		Padding(0, 1)

	t.StatusOnline = lipgloss.NewStyle().
		Foreground(p.Gain).
		Bold(true)

	t.StatusOffline = lipgloss.NewStyle().
		Foreground(p.Loss).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.AccentAlt).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Streaming
	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(p.TextSecondary)

	// Error and empty states
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Loss).
		Padding(0, 2)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(p.Loss).
		Bold(true)

	t.WelcomeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(1, 4).
		Align(lipgloss.Center)

	t.WelcomeTip = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Market semantics
	t.Gain = lipgloss.NewStyle().Foreground(p.Gain)
	t.Loss = lipgloss.NewStyle().Foreground(p.Loss)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
