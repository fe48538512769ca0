// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chart interprets the JSON mini-language found in fenced code
// blocks of assistant messages and normalizes it into chart, table and
// candlestick models. Every producer shape (canonical, legacy label/value,
// grid, candlestick) funnels into these types; renderers never see raw JSON.
package chart

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind discriminates the chart families the interpreter understands.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
	KindArea Kind = "area"
	// KindArc is accepted by the parser but has no renderer yet.
	KindArc Kind = "arc"
)

// validKind reports whether k is a renderable-or-accepted chart kind.
func validKind(k Kind) bool {
	switch k {
	case KindLine, KindBar, KindArea, KindArc:
		return true
	}
	return false
}

// =============================================================================
// MODEL UNION
// =============================================================================

// Model is the normalized result of interpreting one fenced block.
// Exactly three types implement it: *ChartModel, *TableModel and
// *CandlestickModel.
type Model interface {
	model()
}

func (*ChartModel) model()       {}
func (*TableModel) model()       {}
func (*CandlestickModel) model() {}

// =============================================================================
// CHART MODEL
// =============================================================================

// Series is one named sequence of values on the shared category axis.
// A nil value is a missing data point and is never plotted as zero.
type Series struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
	Color  string     `json:"color,omitempty"`
}

// Zone is a horizontal price band overlay.
type Zone struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Label string  `json:"label,omitempty"`
}

// Level is a single horizontal price line overlay.
type Level struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// Overlays carries optional trading annotations drawn on top of a chart.
type Overlays struct {
	SupplyZones []Zone  `json:"supplyZones,omitempty"`
	DemandZones []Zone  `json:"demandZones,omitempty"`
	KeyLevels   []Level `json:"keyLevels,omitempty"`
}

// ChartModel is the canonical producer-agnostic chart description.
type ChartModel struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Categories  []string  `json:"categories"`
	Series      []Series  `json:"series"`
	ValuePrefix string    `json:"valuePrefix,omitempty"`
	ValueSuffix string    `json:"valueSuffix,omitempty"`
	Overlays    *Overlays `json:"overlays,omitempty"`
}

// Validate rejects structurally inconsistent models at construction time
// rather than letting a renderer truncate or pad silently.
func (m *ChartModel) Validate() error {
	if !validKind(m.Kind) {
		return fmt.Errorf("chart: unknown kind %q", m.Kind)
	}
	if len(m.Series) == 0 {
		return fmt.Errorf("chart: no series")
	}
	for _, s := range m.Series {
		if len(s.Values) != len(m.Categories) {
			return fmt.Errorf("chart: series %q has %d values for %d categories",
				s.Name, len(s.Values), len(m.Categories))
		}
	}
	return nil
}

// =============================================================================
// TABLE MODEL
// =============================================================================

// TableModel is a normalized grid. Every row has exactly len(Headers) cells;
// numeric cells are already formatted as strings.
type TableModel struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Validate checks the row-width invariant.
func (m *TableModel) Validate() error {
	if len(m.Headers) == 0 {
		return fmt.Errorf("table: no headers")
	}
	for i, row := range m.Rows {
		if len(row) != len(m.Headers) {
			return fmt.Errorf("table: row %d has %d cells for %d headers",
				i, len(row), len(m.Headers))
		}
	}
	return nil
}

// =============================================================================
// CANDLESTICK MODEL
// =============================================================================

// Candle is one OHLCV entry.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Annotation marks a trade event on a candlestick chart. X is kept as raw
// JSON because producers send either a date string or a numeric index; the
// payload passes through to the renderer losslessly.
type Annotation struct {
	X    json.RawMessage `json:"x"`
	Y    float64         `json:"y"`
	Text string          `json:"text"`
	Type string          `json:"type"` // "entry", "exit" or "stop"
}

// CandlestickModel preserves candlestick markup without interpretation.
// There is no candlestick renderer; the model exists so the markup is
// accepted and its shape survives round trips.
type CandlestickModel struct {
	Title       string       `json:"title,omitempty"`
	Candles     []Candle     `json:"candles"`
	Annotations []Annotation `json:"annotations,omitempty"`
}
