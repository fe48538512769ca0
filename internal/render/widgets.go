// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/model"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	widgetTitle = lipgloss.NewStyle().Bold(true)
	widgetFrame = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238")).Padding(0, 1)
)

// sparkLevels are the block characters used for inline value bars.
var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// =============================================================================
// CHART WIDGET
// =============================================================================

// ChartWidget renders a chart model as a framed terminal panel: one
// sparkline row per series plus its latest value. The fidelity ceiling of a
// terminal cell grid is low; the full drawing lives in the SVG export.
func ChartWidget(m *chart.ChartModel, width int) string {
	var b strings.Builder

	if m.Title != "" {
		b.WriteString(widgetTitle.Render(m.Title))
		b.WriteString("\n")
	}

	if m.Kind == chart.KindArc {
		b.WriteString(mutedStyle.Render("arc charts are not yet implemented"))
		return widgetFrame.Render(b.String())
	}

	nameW := 0
	for _, s := range m.Series {
		if w := runewidth.StringWidth(s.Name); w > nameW {
			nameW = w
		}
	}

	for i, s := range m.Series {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(runewidth.FillRight(s.Name, nameW))
		b.WriteString("  ")
		b.WriteString(sparkline(s.Values))
		if last := lastValue(s.Values); last != nil {
			b.WriteString("  ")
			b.WriteString(mutedStyle.Render(m.ValuePrefix + trimFloat(*last) + m.ValueSuffix))
		}
	}

	if len(m.Categories) > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(m.Categories[0] + " .. " + m.Categories[len(m.Categories)-1]))
	}

	return widgetFrame.Render(b.String())
}

// sparkline maps values onto block characters; nil values become spaces so
// gaps stay visible as gaps.
func sparkline(values []*float64) string {
	mn, mx := 0.0, 0.0
	first := true
	for _, v := range values {
		if v == nil {
			continue
		}
		if first {
			mn, mx = *v, *v
			first = false
			continue
		}
		if *v < mn {
			mn = *v
		}
		if *v > mx {
			mx = *v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if v == nil {
			b.WriteRune(' ')
			continue
		}
		idx := 0
		if mx > mn {
			idx = int((*v - mn) / (mx - mn) * float64(len(sparkLevels)-1))
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

func lastValue(values []*float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return values[i]
		}
	}
	return nil
}

// trimFloat formats a value without trailing zero noise.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// =============================================================================
// TABLE WIDGET
// =============================================================================

// TableWidget renders a table model with runewidth-aware column alignment,
// so CJK and emoji cells line up.
func TableWidget(m *chart.TableModel, width int) string {
	cols := len(m.Headers)
	colW := make([]int, cols)
	for i, h := range m.Headers {
		colW[i] = runewidth.StringWidth(h)
	}
	for _, row := range m.Rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > colW[i] {
				colW[i] = w
			}
		}
	}

	var b strings.Builder
	if m.Title != "" {
		b.WriteString(widgetTitle.Render(m.Title))
		b.WriteString("\n")
	}

	for i, h := range m.Headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(headerStyle.Render(runewidth.FillRight(h, colW[i])))
	}
	b.WriteString("\n")

	for r, row := range m.Rows {
		if r > 0 {
			b.WriteString("\n")
		}
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, colW[i]))
		}
	}

	return widgetFrame.Render(b.String())
}

// =============================================================================
// CANDLESTICK WIDGET
// =============================================================================

// CandlestickWidget summarizes OHLCV data as one row per candle. There is
// no terminal candlestick drawing; the data passes through untouched.
func CandlestickWidget(m *chart.CandlestickModel, width int) string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString(widgetTitle.Render(m.Title))
		b.WriteString("\n")
	}

	for i, c := range m.Candles {
		if i > 0 {
			b.WriteString("\n")
		}
		dir := "+"
		if c.Close < c.Open {
			dir = "-"
		}
		fmt.Fprintf(&b, "%s %s O:%s H:%s L:%s C:%s",
			c.Date, dir, trimFloat(c.Open), trimFloat(c.High), trimFloat(c.Low), trimFloat(c.Close))
	}

	for _, a := range m.Annotations {
		b.WriteString("\n")
		b.WriteString(badgeStyle.Render(a.Type))
		b.WriteString(" ")
		b.WriteString(a.Text)
	}

	return widgetFrame.Render(b.String())
}

// =============================================================================
// SOURCES FOOTER
// =============================================================================

// SourcesFooter renders the citation list shown under a grounded answer.
func SourcesFooter(sources []model.Citation) string {
	if len(sources) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Sources"))
	for i, s := range sources {
		b.WriteString("\n")
		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&b, "  [%d] %s", i+1, title)
		if s.Title != "" {
			b.WriteString(mutedStyle.Render("  " + s.URL))
		}
	}
	return b.String()
}
