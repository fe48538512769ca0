// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// TAG REGISTRY
// =============================================================================

// Hint tells the interpreter what a fence tag promises about its body.
type Hint string

const (
	// HintAuto means the body's own "kind"/"type" field decides.
	HintAuto        Hint = "auto"
	HintTable       Hint = "table"
	HintCandlestick Hint = "candlestick"
	HintLine        Hint = "line"
	HintBar         Hint = "bar"
	HintArea        Hint = "area"
)

// DefaultTags is the unified fence-tag vocabulary. It covers all tag
// conventions the TradeBerg front ends ever emitted; deployments can
// restrict or extend it through configuration.
func DefaultTags() map[string]Hint {
	return map[string]Hint{
		"json-chart":             HintAuto,
		"chart":                  HintAuto,
		"table":                  HintTable,
		"json:chart:bar":         HintBar,
		"json:chart:line":        HintLine,
		"json:chart:area":        HintArea,
		"json:chart:candlestick": HintCandlestick,
		"json:chart:grid":        HintTable,
	}
}

// =============================================================================
// INTERPRETER
// =============================================================================

// Interpreter parses fenced chart markup into normalized models.
// It is stateless after construction and safe for concurrent use.
type Interpreter struct {
	tags map[string]Hint
}

// NewInterpreter creates an interpreter with the given tag vocabulary.
// A nil map selects DefaultTags.
func NewInterpreter(tags map[string]Hint) *Interpreter {
	if tags == nil {
		tags = DefaultTags()
	}
	return &Interpreter{tags: tags}
}

// Recognizes reports whether the fence language tag is chart markup.
func (it *Interpreter) Recognizes(lang string) bool {
	_, ok := it.tags[strings.TrimSpace(strings.ToLower(lang))]
	return ok
}

// Parse interprets the body of a fenced block. Any error means the caller
// should fall back to rendering the block as literal code; Parse never
// panics on malformed input.
func (it *Interpreter) Parse(lang, body string) (Model, error) {
	hint, ok := it.tags[strings.TrimSpace(strings.ToLower(lang))]
	if !ok {
		return nil, fmt.Errorf("chart: unrecognized tag %q", lang)
	}

	var raw rawConfig
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("chart: invalid JSON: %w", err)
	}

	kind := raw.kind()
	switch {
	case hint == HintTable || (hint == HintAuto && len(raw.Headers) > 0):
		return raw.toTable()
	case hint == HintCandlestick || kind == "candlestick":
		return raw.toCandlestick()
	default:
		return raw.toChart(hint)
	}
}

// =============================================================================
// RAW CONFIG
// =============================================================================

// rawConfig is the union of every JSON shape the front ends ever produced.
// Exactly one of the shape families is populated per block.
type rawConfig struct {
	Type  string `json:"type"`
	Kind  string `json:"kind"`
	Title string `json:"title"`

	// Canonical chart shape.
	Labels      []string    `json:"labels"`
	Categories  []string    `json:"categories"`
	Series      []rawSeries `json:"series"`
	ValuePrefix string      `json:"valuePrefix"`
	ValueSuffix string      `json:"valueSuffix"`
	Overlays    *Overlays   `json:"overlays"`

	// Legacy shape ({type, data:[{label,value}]}) and candlestick data
	// share the "data" key; the entry shape disambiguates.
	Data json.RawMessage `json:"data"`

	Annotations []Annotation `json:"annotations"`

	// Grid shape.
	Headers []string            `json:"headers"`
	Rows    [][]json.RawMessage `json:"rows"`
}

type rawSeries struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
	Data   []*float64 `json:"data"` // older spelling of "values"
	Color  string     `json:"color"`
}

// legacyPoint is one entry of the oldest chart format.
type legacyPoint struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// kind returns the declared kind, accepting both field spellings.
func (r *rawConfig) kind() string {
	if r.Kind != "" {
		return strings.ToLower(r.Kind)
	}
	return strings.ToLower(r.Type)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// toChart normalizes canonical and legacy chart shapes into a ChartModel.
func (r *rawConfig) toChart(hint Hint) (*ChartModel, error) {
	kind := Kind(r.kind())
	switch hint {
	case HintLine, HintBar, HintArea:
		// The fence tag is authoritative over the body field.
		kind = Kind(hint)
	}
	if kind == "" {
		return nil, fmt.Errorf("chart: missing kind")
	}

	m := &ChartModel{
		Kind:        kind,
		Title:       r.Title,
		ValuePrefix: r.ValuePrefix,
		ValueSuffix: r.ValueSuffix,
		Overlays:    r.Overlays,
	}

	switch {
	case len(r.Series) > 0:
		m.Categories = r.Categories
		if m.Categories == nil {
			m.Categories = r.Labels
		}
		for _, s := range r.Series {
			values := s.Values
			if values == nil {
				values = s.Data
			}
			m.Series = append(m.Series, Series{Name: s.Name, Values: values, Color: s.Color})
		}

	case len(r.Data) > 0:
		// Legacy single-series format: one synthetic series named after
		// the title.
		var points []legacyPoint
		if err := json.Unmarshal(r.Data, &points); err != nil {
			return nil, fmt.Errorf("chart: invalid legacy data: %w", err)
		}
		series := Series{Name: r.Title}
		for _, p := range points {
			m.Categories = append(m.Categories, p.Label)
			series.Values = append(series.Values, p.Value)
		}
		m.Series = []Series{series}

	default:
		return nil, fmt.Errorf("chart: no series or data")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// toTable normalizes the grid shape, stringifying numeric cells.
func (r *rawConfig) toTable() (*TableModel, error) {
	m := &TableModel{
		Title:   r.Title,
		Headers: r.Headers,
	}

	for i, row := range r.Rows {
		cells := make([]string, 0, len(row))
		for j, rawCell := range row {
			cell, err := decodeCell(rawCell)
			if err != nil {
				return nil, fmt.Errorf("table: row %d cell %d: %w", i, j, err)
			}
			cells = append(cells, cell)
		}
		m.Rows = append(m.Rows, cells)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// toCandlestick preserves OHLCV data and annotations without interpretation.
func (r *rawConfig) toCandlestick() (*CandlestickModel, error) {
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("candlestick: no data")
	}

	var candles []Candle
	if err := json.Unmarshal(r.Data, &candles); err != nil {
		return nil, fmt.Errorf("candlestick: invalid data: %w", err)
	}

	return &CandlestickModel{
		Title:       r.Title,
		Candles:     candles,
		Annotations: r.Annotations,
	}, nil
}

// decodeCell accepts string or numeric table cells.
func decodeCell(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}

	return "", fmt.Errorf("unsupported cell type %s", string(raw))
}
