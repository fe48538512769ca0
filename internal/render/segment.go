// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant message content into terminal output:
// markdown prose through glamour, chart markup through the chart
// interpreter, and everything else as highlighted code blocks.
package render

import (
	"strings"

	"github.com/tradeberg/berg-tui/internal/chart"
)

// =============================================================================
// SEGMENTS
// =============================================================================

// SegmentKind discriminates the pieces of a split message.
type SegmentKind int

const (
	// SegmentProse is markdown text outside any fence.
	SegmentProse SegmentKind = iota
	// SegmentChart is a fenced block that parsed into a chart model.
	SegmentChart
	// SegmentCode is a fenced block rendered as literal code. Chart markup
	// that fails to parse lands here so malformed JSON stays inspectable.
	SegmentCode
)

// Segment is one renderable piece of a message.
type Segment struct {
	Kind  SegmentKind
	Text  string // prose or code body
	Lang  string // fence language tag, code segments only
	Model chart.Model
}

// =============================================================================
// SPLITTING
// =============================================================================

// Split cuts message content on code fences and classifies each piece.
// A trailing fence that never closes is tolerated: its body so far renders
// as code, which is what a stream that stopped mid-block looks like.
func Split(it *chart.Interpreter, text string) []Segment {
	lines := strings.Split(text, "\n")

	var segs []Segment
	var prose []string
	var code []string
	var lang string
	inFence := false

	flushProse := func() {
		if len(prose) == 0 {
			return
		}
		segs = append(segs, Segment{Kind: SegmentProse, Text: strings.Join(prose, "\n")})
		prose = nil
	}

	closeFence := func() {
		body := strings.Join(code, "\n")
		segs = append(segs, classify(it, lang, body))
		code = nil
		lang = ""
		inFence = false
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			if inFence {
				closeFence()
			} else {
				flushProse()
				lang = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inFence = true
			}
		case inFence:
			code = append(code, line)
		default:
			prose = append(prose, line)
		}
	}

	if inFence {
		// Unclosed fence: render what arrived as a plain code block even
		// when the tag promises chart markup, since the JSON is truncated.
		segs = append(segs, Segment{Kind: SegmentCode, Text: strings.Join(code, "\n"), Lang: lang})
	} else {
		flushProse()
	}

	return segs
}

// classify parses a closed fence body. Recognized chart tags that fail to
// parse degrade to code segments.
func classify(it *chart.Interpreter, lang, body string) Segment {
	if it != nil && it.Recognizes(lang) {
		if m, err := it.Parse(lang, body); err == nil {
			return Segment{Kind: SegmentChart, Model: m}
		}
	}
	return Segment{Kind: SegmentCode, Text: body, Lang: lang}
}
