// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the TradeBerg TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Palette is one named color scheme. Every theme style is derived from a
// palette, so switching themes is a palette swap.
type Palette struct {
	Name string

	// Accent colors
	Accent    lipgloss.AdaptiveColor // brand, headers, prompts
	AccentAlt lipgloss.AdaptiveColor // secondary accent, selections

	// Market semantics
	Gain lipgloss.AdaptiveColor // positive movement, success
	Loss lipgloss.AdaptiveColor // negative movement, errors
	Warn lipgloss.AdaptiveColor // caution, rate limits

	// Surfaces
	Surface    lipgloss.AdaptiveColor
	SurfaceDim lipgloss.AdaptiveColor
	Overlay    lipgloss.AdaptiveColor

	// Text
	TextPrimary   lipgloss.AdaptiveColor
	TextSecondary lipgloss.AdaptiveColor
	TextMuted     lipgloss.AdaptiveColor
	TextInverse   lipgloss.AdaptiveColor

	// Message bubbles
	UserFg       lipgloss.AdaptiveColor
	UserBorder   lipgloss.AdaptiveColor
	AnswerFg     lipgloss.AdaptiveColor
	AnswerBorder lipgloss.AdaptiveColor
}

// =============================================================================
// BUILT-IN PALETTES
// =============================================================================

// BergPalette is the default look: deep purple and cyan on a dark surface.
var BergPalette = Palette{
	Name:      "berg",
	Accent:    lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
	AccentAlt: lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"},

	Gain: lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"},
	Loss: lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"},
	Warn: lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"},
	AnswerFg:     lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"},
	AnswerBorder: lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"},
}

// TradePalette is the trading-floor look: emerald and amber, ticker style.
var TradePalette = Palette{
	Name:      "trade",
	Accent:    lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"},
	AccentAlt: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},

	Gain: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"},
	Loss: lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"},
	Warn: lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F1419"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#F0FDF4", Dark: "#0A0E12"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#D1FAE5", Dark: "#1F2A24"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#D1FAE5"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#86EFAC"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#4D7C5F"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F1419"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#A7F3D0"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#10B981"},
	AnswerFg:     lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FDE68A"},
	AnswerBorder: lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#D97706"},
}

// StripPalette is the low-noise look for dumb terminals and screenshots:
// near-monochrome with a single accent.
var StripPalette = Palette{
	Name:      "strip",
	Accent:    lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"},
	AccentAlt: lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"},

	Gain: lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
	Loss: lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
	Warn: lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111111"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#0A0A0A"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#404040"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#171717", Dark: "#E5E5E5"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#525252", Dark: "#A3A3A3"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#A3A3A3", Dark: "#666666"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111111"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#171717", Dark: "#E5E5E5"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#737373", Dark: "#737373"},
	AnswerFg:     lipgloss.AdaptiveColor{Light: "#171717", Dark: "#E5E5E5"},
	AnswerBorder: lipgloss.AdaptiveColor{Light: "#A3A3A3", Dark: "#525252"},
}

// PaletteByName resolves a theme name from config. Unknown names fall back
// to the default berg palette.
func PaletteByName(name string) Palette {
	switch name {
	case "trade":
		return TradePalette
	case "strip":
		return StripPalette
	default:
		return BergPalette
	}
}

// PaletteNames lists the built-in palettes in display order.
func PaletteNames() []string {
	return []string{"berg", "trade", "strip"}
}
