// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chunked text stream produced by the TradeBerg
// backend. The stream is plain UTF-8 prose interleaved with zero or more
// grounding-metadata markers of the form
//
//	<!-- GROUNDING_METADATA: {json} -->
//
// Markers carry citation data and must never reach the visible text. The
// decoder maintains a persistent buffer across chunks, so a marker split at
// any byte offset (including mid-rune) is still detected and stripped.
package stream

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tradeberg/berg-tui/internal/model"
)

// Marker delimiters. The prefix and suffix are a bit-exact wire contract
// with the backend; a single JSON object sits between them.
const (
	markerOpen  = "<!-- GROUNDING_METADATA: "
	markerClose = " -->"
)

// readBufSize is the chunk size used by Run's read loop.
const readBufSize = 4096

// CitationFunc receives each successfully parsed citation batch.
type CitationFunc func(batch []model.Citation)

// scanState tracks whether the scanner is inside a metadata marker.
type scanState int

const (
	stateScanning scanState = iota
	stateInsideMarker
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw byte chunks into visible text plus a side channel of
// citation batches. It is single-use: one Decoder per stream.
//
// Not safe for concurrent use; the read loop owns it.
type Decoder struct {
	// Incremental UTF-8 decoding. The transformer holds back incomplete
	// trailing runes via ErrShortSrc; carry keeps those bytes until the
	// next chunk arrives.
	utf8  transform.Transformer
	carry []byte

	// pending holds decoded text not yet classified as visible. While
	// scanning it is at most a prefix of markerOpen; inside a marker it
	// is the unterminated marker text.
	pending string
	state   scanState

	visible     strings.Builder
	onCitations CitationFunc
	logger      *log.Logger
}

// NewDecoder creates a decoder for one stream.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8: unicode.UTF8.NewDecoder(),
	}
}

// OnCitations registers the callback invoked for each citation batch.
func (d *Decoder) OnCitations(fn CitationFunc) {
	d.onCitations = fn
}

// SetLogger sets the logger for swallowed metadata errors. Nil disables.
func (d *Decoder) SetLogger(l *log.Logger) {
	d.logger = l
}

// =============================================================================
// CHUNK PROCESSING
// =============================================================================

// Write consumes one raw chunk and returns the newly visible text, which
// may be empty while the decoder withholds a possible marker opening.
func (d *Decoder) Write(chunk []byte) string {
	d.pending += d.decode(chunk, false)
	out := d.scan()
	d.visible.WriteString(out)
	return out
}

// Flush terminates the stream: remaining bytes are decoded with end-of-input
// semantics and withheld text is resolved. A marker opening that never became
// a complete marker is ordinary text and is emitted; a marker that opened but
// never closed is dropped so metadata machinery never reaches the user.
func (d *Decoder) Flush() string {
	d.pending += d.decode(nil, true)
	out := d.scan()

	switch d.state {
	case stateScanning:
		out += d.pending
	case stateInsideMarker:
		d.logf("stream: dropping unterminated grounding marker (%d bytes)", len(d.pending))
	}
	d.pending = ""

	d.visible.WriteString(out)
	return out
}

// VisibleText returns all visible text emitted so far.
func (d *Decoder) VisibleText() string {
	return d.visible.String()
}

// Run consumes the reader to completion, invoking onText for every visible
// increment. Cancellation of ctx stops reading; the error returned is
// ctx.Err() so callers can distinguish an abort from a transport failure.
func (d *Decoder) Run(ctx context.Context, r io.Reader, onText func(string)) error {
	buf := make([]byte, readBufSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			if text := d.Write(buf[:n]); text != "" && onText != nil {
				onText(text)
			}
		}
		if err == io.EOF {
			if text := d.Flush(); text != "" && onText != nil {
				onText(text)
			}
			return nil
		}
		if err != nil {
			// The HTTP body surfaces context cancellation as a read
			// error; report it as the cancellation it is.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// =============================================================================
// UTF-8 DECODING
// =============================================================================

// decode appends chunk to any carried bytes and decodes as much as possible.
// Invalid sequences become U+FFFD; an incomplete trailing rune is carried to
// the next call unless atEOF is set.
func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.carry) > 0 {
		src = append(d.carry, chunk...)
		d.carry = nil
	}
	if len(src) == 0 {
		return ""
	}

	var out []byte
	buf := make([]byte, len(src)+utf8.UTFMax)
	for len(src) > 0 {
		nDst, nSrc, err := d.utf8.Transform(buf, src, atEOF)
		out = append(out, buf[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil:
			continue
		case transform.ErrShortSrc:
			d.carry = append(d.carry, src...)
			return string(out)
		case transform.ErrShortDst:
			continue
		default:
			// The UTF-8 decoder substitutes rather than fails; treat
			// anything else as end of decodable input.
			return string(out)
		}
	}
	return string(out)
}

// =============================================================================
// MARKER SCANNING
// =============================================================================

// scan classifies pending text, emitting everything confirmed to be outside
// a marker and consuming complete markers as citation batches.
func (d *Decoder) scan() string {
	var out strings.Builder

	for {
		switch d.state {
		case stateScanning:
			if i := strings.Index(d.pending, markerOpen); i >= 0 {
				out.WriteString(d.pending[:i])
				d.pending = d.pending[i:]
				d.state = stateInsideMarker
				continue
			}

			// Emit all but a trailing run that could still grow into
			// a marker opening.
			keep := prefixOverlap(d.pending, markerOpen)
			cut := len(d.pending) - keep
			out.WriteString(d.pending[:cut])
			d.pending = d.pending[cut:]
			return out.String()

		case stateInsideMarker:
			body := d.pending[len(markerOpen):]
			j := strings.Index(body, markerClose)
			if j < 0 {
				// Closing delimiter not yet arrived.
				return out.String()
			}

			d.emitCitations(body[:j])
			d.pending = body[j+len(markerClose):]
			d.state = stateScanning
		}
	}
}

// prefixOverlap returns the length of the longest proper suffix of s that is
// a prefix of marker.
func prefixOverlap(s, marker string) int {
	max := len(marker) - 1
	if len(s) < max {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if s[len(s)-k:] == marker[:k] {
			return k
		}
	}
	return 0
}

// =============================================================================
// METADATA PARSING
// =============================================================================

// groundingMetadata mirrors the backend's marker payload.
type groundingMetadata struct {
	GroundingChunks []struct {
		Web struct {
			Title string `json:"title"`
			URI   string `json:"uri"`
		} `json:"web"`
	} `json:"groundingChunks"`
}

// emitCitations parses one marker payload. Malformed JSON is swallowed: the
// marker was already stripped from visible text, so the only consequence is
// an empty citation batch.
func (d *Decoder) emitCitations(payload string) {
	var meta groundingMetadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		d.logf("stream: ignoring malformed grounding metadata: %v", err)
		return
	}

	batch := make([]model.Citation, 0, len(meta.GroundingChunks))
	for _, gc := range meta.GroundingChunks {
		if gc.Web.URI == "" {
			continue
		}
		batch = append(batch, model.Citation{Title: gc.Web.Title, URL: gc.Web.URI})
	}

	if len(batch) > 0 && d.onCitations != nil {
		d.onCitations(batch)
	}
}

func (d *Decoder) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}
