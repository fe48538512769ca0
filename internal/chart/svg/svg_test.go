// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package svg

import (
	"strings"
	"testing"

	"github.com/tradeberg/berg-tui/internal/chart"
)

func fp(v float64) *float64 { return &v }

func lineModel(values ...*float64) *chart.ChartModel {
	cats := make([]string, len(values))
	for i := range cats {
		cats[i] = strings.Repeat("x", i+1)
	}
	return &chart.ChartModel{
		Kind:       chart.KindLine,
		Categories: cats,
		Series:     []chart.Series{{Name: "s", Values: values}},
	}
}

// =============================================================================
// NUMBER FORMATTING
// =============================================================================

func TestFormatAbbrev(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{999.5, "999.5"},
		{1000, "1.0k"},
		{1500, "1.5k"},
		{-1500, "-1.5k"},
		{999999, "1000.0k"},
		{1e6, "1.0M"},
		{2500000, "2.5M"},
		{1e9, "1.0B"},
		{3100000000, "3.1B"},
	}
	for _, c := range cases {
		if got := FormatAbbrev(c.in); got != c.want {
			t.Errorf("FormatAbbrev(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

// =============================================================================
// SCALES AND DOMAINS
// =============================================================================

func TestYDomainLineIncludesZero(t *testing.T) {
	lo, hi := yDomain(chart.KindLine, []float64{10, 100})
	if lo != 0 {
		t.Errorf("lo = %v, want 0 (all-positive line domain starts at zero)", lo)
	}
	if hi != 110 {
		t.Errorf("hi = %v, want 110", hi)
	}
}

func TestYDomainLineNegativeExtends(t *testing.T) {
	lo, _ := yDomain(chart.KindLine, []float64{-10, 100})
	if lo != -11 {
		t.Errorf("lo = %v, want -11", lo)
	}
}

func TestYDomainBarPinsLowerToZero(t *testing.T) {
	lo, hi := yDomain(chart.KindBar, []float64{5, 50})
	if lo != 0 || hi != 55 {
		t.Errorf("domain = [%v, %v], want [0, 55]", lo, hi)
	}

	lo, _ = yDomain(chart.KindBar, []float64{-20, 50})
	if lo != -22 {
		t.Errorf("lo = %v, want -22 (negative bars unpin the floor)", lo)
	}
}

func TestYDomainDegenerate(t *testing.T) {
	if lo, hi := yDomain(chart.KindLine, nil); lo != 0 || hi != 1 {
		t.Errorf("empty domain = [%v, %v]", lo, hi)
	}
	// All-zero data must still produce a non-empty domain.
	if lo, hi := yDomain(chart.KindBar, []float64{0, 0}); hi <= lo {
		t.Errorf("flat-zero domain = [%v, %v]", lo, hi)
	}
}

func TestLinearScaleDegenerateDomain(t *testing.T) {
	s := LinearScale{DomainMin: 5, DomainMax: 5, RangeMin: 0, RangeMax: 100}
	if got := s.Map(5); got != 50 {
		t.Errorf("Map = %v, want range midpoint", got)
	}
}

// =============================================================================
// CHART RENDERING
// =============================================================================

func TestRenderDeterministic(t *testing.T) {
	m := &chart.ChartModel{
		Kind:       chart.KindArea,
		Title:      "Volume",
		Categories: []string{"Q1", "Q2", "Q3"},
		Series: []chart.Series{
			{Name: "BTC", Values: []*float64{fp(10), fp(25), fp(18)}},
			{Name: "ETH", Values: []*float64{fp(4), nil, fp(9)}},
		},
		Overlays: &chart.Overlays{KeyLevels: []chart.Level{{Value: 20, Label: "pivot"}}},
	}

	a, err := Render(m, 640)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(m, 640)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if a != b {
		t.Error("repeated renders differ")
	}
}

func TestRenderRejectsInvalidModel(t *testing.T) {
	m := &chart.ChartModel{Kind: chart.KindLine}
	if _, err := Render(m, 400); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSmoothPathUsesMidpointControls(t *testing.T) {
	// Two points with a horizontal midpoint at x=220 for width 400:
	// plot spans 56..384.
	out, err := Render(lineModel(fp(0), fp(100)), 400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, " C 220 ") {
		t.Errorf("path lacks midpoint control x=220:\n%s", out)
	}
}

func TestNilValuesSplitIntoRuns(t *testing.T) {
	out, err := Render(lineModel(fp(1), nil, fp(3), fp(4)), 400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// One path per contiguous run, never a line through the gap.
	if n := strings.Count(out, "<path"); n != 2 {
		t.Errorf("path count = %d, want 2", n)
	}
}

func TestSingleCategoryCentered(t *testing.T) {
	xs := xPositions(1, 400)
	if xs[0] != 220 {
		t.Errorf("single category x = %v, want 220", xs[0])
	}
}

func TestArcRendersPlaceholder(t *testing.T) {
	m := &chart.ChartModel{
		Kind:       chart.KindArc,
		Title:      "Allocation",
		Categories: []string{"a"},
		Series:     []chart.Series{{Name: "s", Values: []*float64{fp(1)}}},
	}
	out, err := Render(m, 400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "arc charts are not yet implemented") {
		t.Error("placeholder text missing")
	}
	if strings.Contains(out, "<path") || strings.Contains(out, "<rect") {
		t.Error("placeholder must not draw chart geometry")
	}
}

func TestAxisLabelsCarryPrefixSuffix(t *testing.T) {
	m := &chart.ChartModel{
		Kind:        chart.KindLine,
		Categories:  []string{"a", "b"},
		Series:      []chart.Series{{Name: "s", Values: []*float64{fp(1000), fp(2000)}}},
		ValuePrefix: "$",
		ValueSuffix: "/d",
	}
	out, err := Render(m, 400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "$") || !strings.Contains(out, "/d") {
		t.Error("value prefix/suffix missing from axis labels")
	}
	if !strings.Contains(out, "k") {
		t.Error("axis labels should abbreviate thousands")
	}
}

func TestTextEscaped(t *testing.T) {
	m := &chart.ChartModel{
		Kind:       chart.KindLine,
		Title:      `A <b> & "q"`,
		Categories: []string{"a"},
		Series:     []chart.Series{{Name: "s", Values: []*float64{fp(1)}}},
	}
	out, err := Render(m, 400)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "<b>") {
		t.Error("title not escaped")
	}
	if !strings.Contains(out, "&lt;b&gt;") || !strings.Contains(out, "&amp;") {
		t.Error("escaped entities missing")
	}
}
