// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/model"
)

// =============================================================================
// SEGMENT SPLITTING
// =============================================================================

func TestSplitProseAndCode(t *testing.T) {
	text := "Intro line.\n```go\nfunc main() {}\n```\nOutro."

	segs := Split(chart.NewInterpreter(nil), text)
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	if segs[0].Kind != SegmentProse || segs[0].Text != "Intro line." {
		t.Errorf("seg 0 = %+v", segs[0])
	}
	if segs[1].Kind != SegmentCode || segs[1].Lang != "go" || segs[1].Text != "func main() {}" {
		t.Errorf("seg 1 = %+v", segs[1])
	}
	if segs[2].Kind != SegmentProse || segs[2].Text != "Outro." {
		t.Errorf("seg 2 = %+v", segs[2])
	}
}

func TestSplitChartFence(t *testing.T) {
	text := "Look:\n```json-chart\n{\"type\":\"bar\",\"title\":\"V\",\"data\":[{\"label\":\"a\",\"value\":1}]}\n```"

	segs := Split(chart.NewInterpreter(nil), text)
	if len(segs) != 2 {
		t.Fatalf("segments = %d", len(segs))
	}
	if segs[1].Kind != SegmentChart {
		t.Fatalf("seg 1 kind = %d", segs[1].Kind)
	}
	if _, ok := segs[1].Model.(*chart.ChartModel); !ok {
		t.Errorf("model = %T", segs[1].Model)
	}
}

func TestSplitMalformedChartDegradesToCode(t *testing.T) {
	text := "```json-chart\n{broken\n```"

	segs := Split(chart.NewInterpreter(nil), text)
	if len(segs) != 1 || segs[0].Kind != SegmentCode {
		t.Fatalf("segments = %+v", segs)
	}
	if segs[0].Text != "{broken" {
		t.Errorf("body = %q, malformed markup must stay inspectable", segs[0].Text)
	}
}

func TestSplitUnclosedTrailingFence(t *testing.T) {
	// Mid-stream state: the closing fence has not arrived yet.
	text := "Answer so far.\n```json-chart\n{\"type\":\"bar\""

	segs := Split(chart.NewInterpreter(nil), text)
	if len(segs) != 2 {
		t.Fatalf("segments = %d", len(segs))
	}
	if segs[1].Kind != SegmentCode {
		t.Errorf("unclosed fence must render as code, got kind %d", segs[1].Kind)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if segs := Split(chart.NewInterpreter(nil), ""); len(segs) != 0 {
		t.Errorf("segments = %+v", segs)
	}
}

// =============================================================================
// WIDGETS
// =============================================================================

func fv(v float64) *float64 { return &v }

func TestChartWidgetSparklineGaps(t *testing.T) {
	m := &chart.ChartModel{
		Kind:       chart.KindLine,
		Categories: []string{"a", "b", "c"},
		Series:     []chart.Series{{Name: "BTC", Values: []*float64{fv(1), nil, fv(3)}}},
	}

	out := ChartWidget(m, 80)
	if !strings.Contains(out, "BTC") {
		t.Error("series name missing")
	}
	if !strings.Contains(out, "▁ █") {
		t.Errorf("nil value must render as a gap:\n%s", out)
	}
}

func TestChartWidgetArcPlaceholder(t *testing.T) {
	m := &chart.ChartModel{
		Kind:       chart.KindArc,
		Categories: []string{"a"},
		Series:     []chart.Series{{Name: "s", Values: []*float64{fv(1)}}},
	}
	if out := ChartWidget(m, 80); !strings.Contains(out, "not yet implemented") {
		t.Errorf("arc placeholder missing:\n%s", out)
	}
}

func TestTableWidgetAlignment(t *testing.T) {
	m := &chart.TableModel{
		Headers: []string{"Ticker", "Px"},
		Rows:    [][]string{{"AAPL", "189.5"}, {"比特币", "94k"}},
	}

	out := TableWidget(m, 80)
	lines := strings.Split(out, "\n")
	// The frame plus header plus two rows.
	if len(lines) < 4 {
		t.Fatalf("output too short:\n%s", out)
	}
	if !strings.Contains(out, "比特币") {
		t.Error("wide-rune cell missing")
	}
}

func TestCandlestickWidget(t *testing.T) {
	m := &chart.CandlestickModel{
		Title:       "BTC 1D",
		Candles:     []chart.Candle{{Date: "2025-01-01", Open: 2, High: 3, Low: 1, Close: 1.5}},
		Annotations: []chart.Annotation{{Text: "stop hit", Type: "stop"}},
	}

	out := CandlestickWidget(m, 80)
	if !strings.Contains(out, "2025-01-01 -") {
		t.Errorf("down candle must carry a - marker:\n%s", out)
	}
	if !strings.Contains(out, "stop hit") {
		t.Error("annotation missing")
	}
}

func TestSourcesFooter(t *testing.T) {
	out := SourcesFooter([]model.Citation{
		{Title: "CoinDesk", URL: "https://coindesk.com/a"},
		{URL: "https://example.com/b"},
	})
	if !strings.Contains(out, "[1] CoinDesk") {
		t.Errorf("footer = %q", out)
	}
	if !strings.Contains(out, "[2] https://example.com/b") {
		t.Error("title-less citation must fall back to its URL")
	}
	if SourcesFooter(nil) != "" {
		t.Error("no sources means no footer")
	}
}

// =============================================================================
// RENDERER
// =============================================================================

func TestMessageRenderIdempotent(t *testing.T) {
	r, err := NewRenderer(80, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	content := "# Outlook\nBitcoin is *consolidating*.\n```json-chart\n" +
		`{"type":"line","title":"BTC","data":[{"label":"Mon","value":1},{"label":"Tue","value":2}]}` +
		"\n```\nWatch the range."

	a := r.Message(content)
	b := r.Message(content)
	if a != b {
		t.Error("repeated renders of identical content differ")
	}
	if a == "" {
		t.Error("empty render")
	}
}

func TestCodeViewFallsBackToPlain(t *testing.T) {
	code := "plain words, no language"
	if out := CodeView("", code); out == "" {
		t.Error("empty highlight output")
	}
}
