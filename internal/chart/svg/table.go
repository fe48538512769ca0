// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package svg

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tradeberg/berg-tui/internal/chart"
)

// =============================================================================
// BADGE SPLITTING
// =============================================================================

// badgeRe matches a cell of the form "<text> <number>" where the trailing
// number may be wrapped in parentheses or brackets. The trailing number is
// rendered as a badge next to the text.
var badgeRe = regexp.MustCompile(`^(.*\S)[ \t]+[\(\[]?(\d+(?:\.\d+)?)[\)\]]?$`)

// SplitBadge splits a table cell into its text and trailing badge number.
// ok is false when the cell has no badge part.
func SplitBadge(cell string) (text, badge string, ok bool) {
	m := badgeRe.FindStringSubmatch(cell)
	if m == nil {
		return cell, "", false
	}
	return m[1], m[2], true
}

// =============================================================================
// TABLE RENDERER
// =============================================================================

const (
	rowHeight   = 26
	headerH     = 30
	cellPadding = 8.0
	titleH      = 24
)

// RenderTable produces an SVG document for a table model. Columns share the
// width evenly; the first column is the row-label column and is drawn with a
// stronger fill, mirroring the pinned column of the web widget.
func RenderTable(m *chart.TableModel, width int) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if width < 120 {
		width = 120
	}

	topOffset := 0
	if m.Title != "" {
		topOffset = titleH
	}
	height := topOffset + headerH + rowHeight*len(m.Rows)

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	b.WriteString("\n")

	if m.Title != "" {
		fmt.Fprintf(&b, `<text x="0" y="16" font-size="14" font-weight="bold" fill="#CDD6F4">%s</text>`,
			escape(m.Title))
		b.WriteString("\n")
	}

	colW := float64(width) / float64(len(m.Headers))

	// Header row.
	fmt.Fprintf(&b, `<rect x="0" y="%d" width="%d" height="%d" fill="#181825"/>`, topOffset, width, headerH)
	b.WriteString("\n")
	for c, h := range m.Headers {
		fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="11" font-weight="bold" fill="#A6ADC8">%s</text>`,
			coord(float64(c)*colW+cellPadding), coord(float64(topOffset+headerH)-10), escape(h))
		b.WriteString("\n")
	}

	// Body rows; alternating fills, first column emphasized.
	for r, row := range m.Rows {
		y := topOffset + headerH + r*rowHeight
		fill := "#1E1E2E"
		if r%2 == 1 {
			fill = "#181825"
		}
		fmt.Fprintf(&b, `<rect x="0" y="%d" width="%d" height="%d" fill="%s"/>`, y, width, rowHeight, fill)
		b.WriteString("\n")
		fmt.Fprintf(&b, `<rect x="0" y="%d" width="%s" height="%d" fill="#313244" opacity="0.35"/>`,
			y, coord(colW), rowHeight)
		b.WriteString("\n")

		for c, cell := range row {
			x := float64(c)*colW + cellPadding
			textY := coord(float64(y+rowHeight) - 8)

			text, badge, hasBadge := SplitBadge(cell)
			fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="11" fill="#CDD6F4">%s</text>`,
				coord(x), textY, escape(text))
			b.WriteString("\n")

			if hasBadge {
				bx := float64(c+1)*colW - cellPadding - 24
				fmt.Fprintf(&b, `<rect x="%s" y="%d" width="24" height="14" rx="7" fill="#45475A"/>`,
					coord(bx), y+6)
				b.WriteString("\n")
				fmt.Fprintf(&b, `<text x="%s" y="%d" text-anchor="middle" font-size="9" fill="#CDD6F4">%s</text>`,
					coord(bx+12), y+16, escape(badge))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("</svg>")
	return b.String(), nil
}
