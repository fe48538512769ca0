// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tradeberg/berg-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.Accent).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.AccentAlt).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.TextSecondary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.TextMuted)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.Warn).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.BergPalette.Loss).
			Bold(true)
)
