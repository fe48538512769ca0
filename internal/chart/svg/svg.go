// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package svg renders normalized chart and table models into standalone SVG
// documents. Rendering is a pure function of (model, viewport width): no
// clock, no randomness, bit-identical output for identical input.
package svg

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tradeberg/berg-tui/internal/chart"
)

// =============================================================================
// GEOMETRY CONSTANTS
// =============================================================================

const (
	chartHeight = 260

	padLeft   = 56.0
	padRight  = 16.0
	padTop    = 32.0
	padBottom = 36.0

	yTickCount = 5
)

// defaultPalette colors series that carry no explicit color, in order.
var defaultPalette = []string{"#22D3EE", "#A78BFA", "#34D399", "#FBBF24", "#FB7185"}

// =============================================================================
// LINEAR SCALE
// =============================================================================

// LinearScale maps a data domain onto pixel coordinates.
type LinearScale struct {
	DomainMin, DomainMax float64
	RangeMin, RangeMax   float64
}

// Map projects a domain value into the pixel range.
func (s LinearScale) Map(v float64) float64 {
	if s.DomainMax == s.DomainMin {
		return (s.RangeMin + s.RangeMax) / 2
	}
	t := (v - s.DomainMin) / (s.DomainMax - s.DomainMin)
	return s.RangeMin + t*(s.RangeMax-s.RangeMin)
}

// yDomain computes the vertical domain for a chart.
// Line and area charts extend 10% past the data extremes and always include
// zero from below; bar charts pin the lower bound to zero unless a value is
// negative.
func yDomain(kind chart.Kind, values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}

	mn, mx := values[0], values[0]
	for _, v := range values[1:] {
		mn = math.Min(mn, v)
		mx = math.Max(mx, v)
	}

	var lo float64
	switch kind {
	case chart.KindBar:
		if mn < 0 {
			lo = mn * 1.1
		}
	default:
		lo = math.Min(0, mn*1.1)
	}
	hi := mx * 1.1

	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// =============================================================================
// NUMBER FORMATTING
// =============================================================================

// FormatAbbrev abbreviates axis labels with k/M/B suffixes at the
// 1e3/1e6/1e9 thresholds, one decimal place.
func FormatAbbrev(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// coord formats a pixel coordinate with two-decimal precision so output is
// stable across platforms.
func coord(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// escape makes text safe for SVG text nodes and attributes.
var escape = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
).Replace

// =============================================================================
// CHART RENDERER
// =============================================================================

// Render produces an SVG document for the chart model at the given viewport
// width. Arc charts render a placeholder banner.
func Render(m *chart.ChartModel, width int) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if width < 120 {
		width = 120
	}

	if m.Kind == chart.KindArc {
		return renderPlaceholder(m.Title, width), nil
	}

	var b strings.Builder
	openDocument(&b, width)

	if m.Title != "" {
		fmt.Fprintf(&b, `<text x="%s" y="20" font-size="14" font-weight="bold" fill="#CDD6F4">%s</text>`,
			coord(padLeft), escape(m.Title))
		b.WriteString("\n")
	}

	lo, hi := yDomain(m.Kind, flatten(m.Series))
	yScale := LinearScale{DomainMin: lo, DomainMax: hi, RangeMin: float64(chartHeight) - padBottom, RangeMax: padTop}

	drawAxes(&b, m, width, yScale)
	drawOverlays(&b, m.Overlays, width, yScale)

	switch m.Kind {
	case chart.KindBar:
		drawBars(&b, m, width, yScale)
	default:
		drawLines(&b, m, width, yScale, m.Kind == chart.KindArea)
	}

	b.WriteString("</svg>")
	return b.String(), nil
}

func openDocument(b *strings.Builder, width int) {
	fmt.Fprintf(b,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, chartHeight, width, chartHeight)
	b.WriteString("\n")
}

// renderPlaceholder is used for chart kinds accepted by the parser but not
// yet drawable.
func renderPlaceholder(title string, width int) string {
	var b strings.Builder
	openDocument(&b, width)
	label := "arc charts are not yet implemented"
	if title != "" {
		label = escape(title) + ": " + label
	}
	fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="13" fill="#A6ADC8">%s</text>`,
		coord(float64(width)/2), coord(float64(chartHeight)/2), label)
	b.WriteString("\n</svg>")
	return b.String()
}

// flatten collects all present values across series.
func flatten(series []chart.Series) []float64 {
	var out []float64
	for _, s := range series {
		for _, v := range s.Values {
			if v != nil {
				out = append(out, *v)
			}
		}
	}
	return out
}

// xPositions spaces N categories evenly across the plotting width.
// A single category sits at the center.
func xPositions(n, width int) []float64 {
	plotLeft := padLeft
	plotRight := float64(width) - padRight

	xs := make([]float64, n)
	if n == 1 {
		xs[0] = (plotLeft + plotRight) / 2
		return xs
	}
	step := (plotRight - plotLeft) / float64(n-1)
	for i := range xs {
		xs[i] = plotLeft + float64(i)*step
	}
	return xs
}

func seriesColor(s chart.Series, i int) string {
	if s.Color != "" {
		return s.Color
	}
	return defaultPalette[i%len(defaultPalette)]
}

// =============================================================================
// AXES AND LABELS
// =============================================================================

func drawAxes(b *strings.Builder, m *chart.ChartModel, width int, yScale LinearScale) {
	plotRight := float64(width) - padRight

	// Horizontal gridlines with abbreviated tick labels.
	for i := 0; i <= yTickCount; i++ {
		v := yScale.DomainMin + (yScale.DomainMax-yScale.DomainMin)*float64(i)/float64(yTickCount)
		y := yScale.Map(v)

		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#313244" stroke-width="1"/>`,
			coord(padLeft), coord(y), coord(plotRight), coord(y))
		b.WriteString("\n")

		label := m.ValuePrefix + FormatAbbrev(v) + m.ValueSuffix
		fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="end" font-size="10" fill="#6C7086">%s</text>`,
			coord(padLeft-6), coord(y+3), escape(label))
		b.WriteString("\n")
	}

	// Category labels along the x axis.
	xs := xPositions(len(m.Categories), width)
	for i, cat := range m.Categories {
		fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="middle" font-size="10" fill="#6C7086">%s</text>`,
			coord(xs[i]), coord(float64(chartHeight)-padBottom+16), escape(cat))
		b.WriteString("\n")
	}
}

// =============================================================================
// OVERLAYS
// =============================================================================

func drawOverlays(b *strings.Builder, o *chart.Overlays, width int, yScale LinearScale) {
	if o == nil {
		return
	}
	plotRight := float64(width) - padRight
	plotW := plotRight - padLeft

	zone := func(z chart.Zone, fill string) {
		top := yScale.Map(math.Max(z.From, z.To))
		bottom := yScale.Map(math.Min(z.From, z.To))
		fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" opacity="0.15"/>`,
			coord(padLeft), coord(top), coord(plotW), coord(bottom-top), fill)
		b.WriteString("\n")
		if z.Label != "" {
			fmt.Fprintf(b, `<text x="%s" y="%s" font-size="9" fill="%s">%s</text>`,
				coord(padLeft+4), coord(top+10), fill, escape(z.Label))
			b.WriteString("\n")
		}
	}

	for _, z := range o.SupplyZones {
		zone(z, "#FB7185")
	}
	for _, z := range o.DemandZones {
		zone(z, "#34D399")
	}
	for _, l := range o.KeyLevels {
		y := yScale.Map(l.Value)
		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="#FBBF24" stroke-width="1" stroke-dasharray="4 3"/>`,
			coord(padLeft), coord(y), coord(plotRight), coord(y))
		b.WriteString("\n")
		if l.Label != "" {
			fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="end" font-size="9" fill="#FBBF24">%s</text>`,
				coord(plotRight-4), coord(y-4), escape(l.Label))
			b.WriteString("\n")
		}
	}
}

// =============================================================================
// LINE AND AREA SERIES
// =============================================================================

type point struct{ x, y float64 }

func drawLines(b *strings.Builder, m *chart.ChartModel, width int, yScale LinearScale, area bool) {
	xs := xPositions(len(m.Categories), width)
	baseline := yScale.Map(yScale.DomainMin)

	for si, s := range m.Series {
		color := seriesColor(s, si)

		// Missing values split the series into independent runs; a nil
		// is a gap, never a zero.
		var run []point
		flushRun := func() {
			if len(run) == 0 {
				return
			}
			path := smoothPath(run)
			if area {
				fill := path +
					" L " + coord(run[len(run)-1].x) + " " + coord(baseline) +
					" L " + coord(run[0].x) + " " + coord(baseline) + " Z"
				fmt.Fprintf(b, `<path d="%s" fill="%s" opacity="0.2" stroke="none"/>`, fill, color)
				b.WriteString("\n")
			}
			fmt.Fprintf(b, `<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`, path, color)
			b.WriteString("\n")
			run = nil
		}

		for i, v := range s.Values {
			if v == nil {
				flushRun()
				continue
			}
			run = append(run, point{x: xs[i], y: yScale.Map(*v)})
		}
		flushRun()
	}
}

// smoothPath builds a cubic-bezier path through consecutive points with both
// control points at the horizontal midpoint. This reproduces the house chart
// style; it is intentionally not Catmull-Rom.
func smoothPath(pts []point) string {
	var b strings.Builder
	b.WriteString("M " + coord(pts[0].x) + " " + coord(pts[0].y))
	for i := 1; i < len(pts); i++ {
		p0, p1 := pts[i-1], pts[i]
		mx := (p0.x + p1.x) / 2
		b.WriteString(" C " + coord(mx) + " " + coord(p0.y) +
			" " + coord(mx) + " " + coord(p1.y) +
			" " + coord(p1.x) + " " + coord(p1.y))
	}
	return b.String()
}

// =============================================================================
// BAR SERIES
// =============================================================================

func drawBars(b *strings.Builder, m *chart.ChartModel, width int, yScale LinearScale) {
	n := len(m.Categories)
	if n == 0 {
		return
	}

	plotW := float64(width) - padLeft - padRight
	slot := plotW / float64(n)
	group := slot * 0.7
	barW := group / float64(len(m.Series))
	zero := yScale.Map(math.Max(0, yScale.DomainMin))

	xs := xPositions(n, width)
	for si, s := range m.Series {
		color := seriesColor(s, si)
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			x := xs[i] - group/2 + float64(si)*barW
			y := yScale.Map(*v)

			top, h := y, zero-y
			if h < 0 {
				top, h = zero, -h
			}
			fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" rx="2"/>`,
				coord(x), coord(top), coord(barW*0.9), coord(h), color)
			b.WriteString("\n")
		}
	}
}
