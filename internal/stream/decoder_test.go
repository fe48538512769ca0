// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/tradeberg/berg-tui/internal/model"
)

const sampleMarker = `<!-- GROUNDING_METADATA: {"groundingChunks":[{"web":{"title":"A","uri":"http://x"}}]} -->`

// collect runs a decoder over the given chunks and returns the visible text
// and all citation batches flattened.
func collect(t *testing.T, chunks ...[]byte) (string, []model.Citation) {
	t.Helper()

	d := NewDecoder()
	var cites []model.Citation
	d.OnCitations(func(batch []model.Citation) {
		cites = append(cites, batch...)
	})

	var visible strings.Builder
	for _, c := range chunks {
		visible.WriteString(d.Write(c))
	}
	visible.WriteString(d.Flush())

	if visible.String() != d.VisibleText() {
		t.Fatalf("incremental output %q != cumulative %q", visible.String(), d.VisibleText())
	}
	return visible.String(), cites
}

// =============================================================================
// MARKER STRIPPING
// =============================================================================

func TestMarkerStrippedFromVisibleText(t *testing.T) {
	input := "Bitcoin is bullish. " + sampleMarker + "Buy the dip."

	visible, cites := collect(t, []byte(input))

	if visible != "Bitcoin is bullish. Buy the dip." {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(cites))
	}
	if cites[0].Title != "A" || cites[0].URL != "http://x" {
		t.Errorf("citation = %+v", cites[0])
	}
}

func TestMarkerAtStartAndEnd(t *testing.T) {
	for _, input := range []string{
		sampleMarker + "text after",
		"text before " + sampleMarker,
	} {
		visible, cites := collect(t, []byte(input))
		if strings.Contains(visible, "GROUNDING_METADATA") {
			t.Errorf("marker leaked into visible text: %q", visible)
		}
		if len(cites) != 1 {
			t.Errorf("expected 1 citation for %q, got %d", input, len(cites))
		}
	}
}

func TestMultipleMarkersInOneStream(t *testing.T) {
	second := `<!-- GROUNDING_METADATA: {"groundingChunks":[{"web":{"title":"B","uri":"http://y"}}]} -->`
	input := "one " + sampleMarker + "two " + second + "three"

	visible, cites := collect(t, []byte(input))

	if visible != "one two three" {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(cites))
	}
	if cites[1].URL != "http://y" {
		t.Errorf("cites[1] = %+v", cites[1])
	}
}

// =============================================================================
// SPLIT-CHUNK MARKERS
// =============================================================================

// A marker split at every possible byte offset must behave exactly like the
// single-chunk case. This is the regression test for per-chunk matching.
func TestMarkerSplitAtEveryOffset(t *testing.T) {
	input := "Bitcoin is bullish. " + sampleMarker + "Buy the dip."
	raw := []byte(input)

	for off := 1; off < len(raw); off++ {
		visible, cites := collect(t, raw[:off], raw[off:])

		if visible != "Bitcoin is bullish. Buy the dip." {
			t.Fatalf("offset %d: visible = %q", off, visible)
		}
		if len(cites) != 1 || cites[0].URL != "http://x" {
			t.Fatalf("offset %d: citations = %+v", off, cites)
		}
	}
}

func TestMarkerSplitIntoManyTinyChunks(t *testing.T) {
	input := "a" + sampleMarker + "b"

	var chunks [][]byte
	for _, b := range []byte(input) {
		chunks = append(chunks, []byte{b})
	}

	visible, cites := collect(t, chunks...)
	if visible != "ab" {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 1 {
		t.Errorf("expected 1 citation, got %d", len(cites))
	}
}

func TestMultiByteRuneSplitAcrossChunks(t *testing.T) {
	// "€" is 3 bytes; split in the middle of it.
	input := "price: 10€ more"
	raw := []byte(input)
	idx := strings.Index(input, "€") + 1 // one byte into the rune

	visible, _ := collect(t, raw[:idx], raw[idx:])
	if visible != input {
		t.Errorf("visible = %q, want %q", visible, input)
	}
}

func TestMarkerAndRuneSplitTogether(t *testing.T) {
	input := "наличные " + sampleMarker + " деньги"
	raw := []byte(input)

	for off := 1; off < len(raw); off++ {
		visible, cites := collect(t, raw[:off], raw[off:])
		if visible != "наличные  деньги" {
			t.Fatalf("offset %d: visible = %q", off, visible)
		}
		if len(cites) != 1 {
			t.Fatalf("offset %d: %d citations", off, len(cites))
		}
	}
}

// =============================================================================
// MALFORMED AND PARTIAL METADATA
// =============================================================================

func TestMalformedMetadataIsSwallowed(t *testing.T) {
	input := "before <!-- GROUNDING_METADATA: {not json} --> after"

	visible, cites := collect(t, []byte(input))

	if visible != "before  after" {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 0 {
		t.Errorf("expected no citations, got %+v", cites)
	}
}

func TestEmptyURICitationsDropped(t *testing.T) {
	input := `<!-- GROUNDING_METADATA: {"groundingChunks":[{"web":{"title":"T","uri":""}},{"web":{"title":"U","uri":"http://u"}}]} -->`

	_, cites := collect(t, []byte(input))

	if len(cites) != 1 || cites[0].URL != "http://u" {
		t.Errorf("citations = %+v", cites)
	}
}

func TestFalseMarkerPrefixIsEmitted(t *testing.T) {
	// Ordinary HTML comments are not grounding markers and must pass through.
	input := "a <!-- just a comment --> b"

	visible, cites := collect(t, []byte(input))
	if visible != input {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 0 {
		t.Errorf("unexpected citations: %+v", cites)
	}
}

func TestTrailingPartialPrefixEmittedOnFlush(t *testing.T) {
	// The stream ends while the decoder is still withholding "<!-- GRO".
	visible, _ := collect(t, []byte("total <!-- GRO"))

	if visible != "total <!-- GRO" {
		t.Errorf("visible = %q", visible)
	}
}

func TestUnterminatedMarkerDroppedOnFlush(t *testing.T) {
	visible, cites := collect(t, []byte("done. <!-- GROUNDING_METADATA: {\"groundi"))

	if visible != "done. " {
		t.Errorf("visible = %q", visible)
	}
	if len(cites) != 0 {
		t.Errorf("unexpected citations: %+v", cites)
	}
}

func TestPartialMarkerNeverVisibleMidStream(t *testing.T) {
	d := NewDecoder()

	out := d.Write([]byte("text <!-- GROUNDING_METADATA: {\"ground"))
	if out != "text " {
		t.Errorf("first chunk output = %q", out)
	}

	out = d.Write([]byte(`ingChunks":[]} -->done`))
	if out != "done" {
		t.Errorf("second chunk output = %q", out)
	}
}

// =============================================================================
// READ LOOP
// =============================================================================

func TestRunConsumesReader(t *testing.T) {
	input := "Bitcoin is bullish. " + sampleMarker + "Buy the dip."

	d := NewDecoder()
	var cites []model.Citation
	d.OnCitations(func(b []model.Citation) { cites = append(cites, b...) })

	var got strings.Builder
	err := d.Run(context.Background(), strings.NewReader(input), func(s string) {
		got.WriteString(s)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.String() != "Bitcoin is bullish. Buy the dip." {
		t.Errorf("visible = %q", got.String())
	}
	if len(cites) != 1 {
		t.Errorf("expected 1 citation, got %d", len(cites))
	}
}

// blockingReader yields its chunks then blocks until the context is done.
type blockingReader struct {
	chunks [][]byte
	ctx    context.Context
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if len(r.chunks) > 0 {
		n := copy(p, r.chunks[0])
		if n == len(r.chunks[0]) {
			r.chunks = r.chunks[1:]
		} else {
			r.chunks[0] = r.chunks[0][n:]
		}
		return n, nil
	}
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &blockingReader{ctx: ctx, chunks: [][]byte{[]byte("partial ")}}

	d := NewDecoder()
	var got strings.Builder
	first := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, r, func(s string) {
			got.WriteString(s)
			once.Do(func() { close(first) })
		})
	}()

	// Let the first chunk land, then cancel.
	<-first
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if got.String() != "partial " {
		t.Errorf("visible after cancel = %q", got.String())
	}
}

func TestRunPropagatesReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("some "), errReader{err: boom})

	d := NewDecoder()
	err := d.Run(context.Background(), r, nil)
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want %v", err, boom)
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
