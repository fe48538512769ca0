// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/tradeberg/berg-tui/internal/chart"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// Renderer converts message content into terminal output. It is a pure
// function of its inputs: rendering the same content twice yields identical
// output, so re-renders during streaming never flicker or drift.
type Renderer struct {
	width  int
	md     *glamour.TermRenderer
	interp *chart.Interpreter
}

// NewRenderer creates a renderer for the given terminal width. A nil
// interpreter selects the default tag vocabulary.
func NewRenderer(width int, interp *chart.Interpreter) (*Renderer, error) {
	if interp == nil {
		interp = chart.NewInterpreter(nil)
	}
	if width < 20 {
		width = 20
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Renderer{width: width, md: md, interp: interp}, nil
}

// Message renders full message content: prose through glamour, chart fences
// through the widgets, other fences as highlighted code.
func (r *Renderer) Message(content string) string {
	segs := Split(r.interp, content)

	var out []string
	for _, seg := range segs {
		switch seg.Kind {
		case SegmentProse:
			out = append(out, r.prose(seg.Text))
		case SegmentChart:
			out = append(out, r.chartView(seg))
		case SegmentCode:
			out = append(out, CodeView(seg.Lang, seg.Text))
		}
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) prose(text string) string {
	rendered, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func (r *Renderer) chartView(seg Segment) string {
	switch m := seg.Model.(type) {
	case *chart.ChartModel:
		return ChartWidget(m, r.width)
	case *chart.TableModel:
		return TableWidget(m, r.width)
	case *chart.CandlestickModel:
		return CandlestickWidget(m, r.width)
	default:
		return ""
	}
}

// =============================================================================
// CODE VIEW
// =============================================================================

// CodeView highlights a code block with chroma, falling back to plain text
// when no lexer matches.
func CodeView(language, code string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
