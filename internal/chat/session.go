// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat coordinates one conversation between the user and the
// TradeBerg backend: message lifecycle, the single live stream, and the
// event feed the UI renders from.
package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/model"
	"github.com/tradeberg/berg-tui/internal/stream"
)

// failureText is appended to a message when its stream dies mid-flight.
// The partial content above it stays visible.
const failureText = "\n\nSomething went wrong. Please try again."

// defaultIdleTimeout is how long a live stream may go without producing
// visible text before the watchdog kills it.
const defaultIdleTimeout = 60 * time.Second

// eventBufSize bounds the event feed. A draining UI never fills it; if it
// does fill, droppable events are discarded rather than wedging the stream
// goroutine. Terminal events are always delivered; see emit.
const eventBufSize = 256

// ErrEmptyPrompt is returned by Submit for whitespace-only input.
var ErrEmptyPrompt = errors.New("chat: empty prompt")

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the slice of the API client the session needs. *api.Client
// satisfies it; tests substitute an in-memory fake.
type Backend interface {
	CreateChat(ctx context.Context, title string) (string, error)
	History(ctx context.Context, chatID string) (*api.HistoryResponse, error)
	StreamMessage(ctx context.Context, chatID, message string) (io.ReadCloser, error)
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind discriminates session events.
type EventKind int

const (
	// EventAppend carries newly visible text for a streaming message.
	EventAppend EventKind = iota
	// EventSources carries a citation batch merged into a message.
	EventSources
	// EventStep carries a transient progress label.
	EventStep
	// EventDone marks a stream that completed normally.
	EventDone
	// EventAborted marks a stream cancelled by the user.
	EventAborted
	// EventError marks a stream that failed.
	EventError
)

// Event is one item on the session's feed. MessageID identifies the
// assistant message the event belongs to.
type Event struct {
	Kind      EventKind
	MessageID string
	Text      string
	Sources   []model.Citation
	Err       error
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one conversation and at most one live stream at a time.
// Submitting while a stream is live aborts it first.
//
// Submit, Abort, Open and Reset are called from the UI goroutine; the
// stream runs on its own goroutine and communicates through Events.
type Session struct {
	backend     Backend
	conv        *model.Conversation
	events      chan Event
	idleTimeout time.Duration
	logger      *log.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	streamDone chan struct{}
}

// NewSession creates a session with an empty conversation.
func NewSession(backend Backend) *Session {
	return &Session{
		backend:     backend,
		conv:        model.NewConversation(),
		events:      make(chan Event, eventBufSize),
		idleTimeout: defaultIdleTimeout,
	}
}

// SetIdleTimeout overrides the stream watchdog interval.
func (s *Session) SetIdleTimeout(d time.Duration) {
	s.idleTimeout = d
}

// SetLogger sets the logger for dropped events and swallowed stream noise.
func (s *Session) SetLogger(l *log.Logger) {
	s.logger = l
}

// Events returns the feed the UI drains.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Conversation returns the session's conversation. The returned value is
// only safe to read between a terminal event and the next Submit.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// IsStreaming reports whether a stream is currently live.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamDone == nil {
		return false
	}
	select {
	case <-s.streamDone:
		return false
	default:
		return true
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends a user prompt. Any in-flight stream is aborted first. For a
// conversation with no backend id yet, the chat is created before the first
// stream; if creation fails the echoed user message is discarded so the
// transcript shows no half-started exchange.
func (s *Session) Submit(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	s.Abort()

	userMsg := s.conv.AddUserMessage(prompt)

	if s.conv.ChatID == "" {
		id, err := s.backend.CreateChat(ctx, s.conv.GetTitle())
		if err != nil {
			s.conv.RemoveMessage(userMsg.ID)
			return err
		}
		s.conv.ChatID = id
	}

	asst := s.conv.AddAssistantMessage()
	asst.AddSearchStep("Analyzing markets")

	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.streamDone = done
	s.mu.Unlock()

	go s.runStream(streamCtx, cancel, done, asst, prompt)
	return nil
}

// Abort cancels the live stream, if any, and waits for it to settle. The
// partial content streamed so far is kept; no error text is added.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel, done := s.cancel, s.streamDone
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// =============================================================================
// STREAM GOROUTINE
// =============================================================================

func (s *Session) runStream(ctx context.Context, cancel context.CancelFunc, done chan struct{}, msg *model.Message, prompt string) {
	defer close(done)
	defer cancel()

	body, err := s.backend.StreamMessage(ctx, s.conv.ChatID, prompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			msg.Abort()
			s.emit(Event{Kind: EventAborted, MessageID: msg.ID})
			return
		}
		s.fail(msg, err)
		return
	}
	defer body.Close()

	// The watchdog kills streams that stall without closing.
	var timedOut atomic.Bool
	watchdog := time.AfterFunc(s.idleTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	dec := stream.NewDecoder()
	dec.SetLogger(s.logger)
	dec.OnCitations(func(batch []model.Citation) {
		msg.MergeSources(batch)
		s.emit(Event{Kind: EventSources, MessageID: msg.ID, Sources: batch})
	})

	err = dec.Run(ctx, body, func(text string) {
		watchdog.Reset(s.idleTimeout)
		msg.Append(text)
		s.emit(Event{Kind: EventAppend, MessageID: msg.ID, Text: text})
	})

	switch {
	case err == nil:
		msg.Finalize()
		s.emit(Event{Kind: EventDone, MessageID: msg.ID})
	case timedOut.Load():
		s.fail(msg, errors.New("chat: stream idle timeout"))
	case errors.Is(err, context.Canceled):
		msg.Abort()
		s.emit(Event{Kind: EventAborted, MessageID: msg.ID})
	default:
		s.fail(msg, err)
	}
}

func (s *Session) fail(msg *model.Message, err error) {
	msg.Fail(failureText)
	s.emit(Event{Kind: EventError, MessageID: msg.ID, Err: err})
}

// emit delivers an event without ever blocking the stream goroutine. When
// the feed is full, append/sources/step events are dropped; a consumer that
// fell behind re-reads the message itself. Terminal events instead evict
// the oldest queued event until they fit, so every stream observably ends.
func (s *Session) emit(e Event) {
	terminal := e.Kind == EventDone || e.Kind == EventAborted || e.Kind == EventError

	for {
		select {
		case s.events <- e:
			return
		default:
		}

		if !terminal {
			if s.logger != nil {
				s.logger.Printf("chat: event feed full, dropping event kind=%d", e.Kind)
			}
			return
		}

		select {
		case old := <-s.events:
			if s.logger != nil {
				s.logger.Printf("chat: event feed full, evicting kind=%d for terminal event", old.Kind)
			}
		default:
			// A consumer won the race for a slot; retry the send.
		}
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// Open replaces the conversation with one rehydrated from the backend.
// Any live stream is aborted first.
func (s *Session) Open(ctx context.Context, chatID string) error {
	s.Abort()

	h, err := s.backend.History(ctx, chatID)
	if err != nil {
		return err
	}

	conv := model.NewConversation()
	conv.ChatID = h.ChatID
	if conv.ChatID == "" {
		conv.ChatID = chatID
	}
	conv.Title = h.Title

	for _, wm := range h.Messages {
		m := model.NewHistoryMessage(wm.ID, model.ParseRole(wm.Role), wm.Content)
		if len(wm.Sources) > 0 {
			batch := make([]model.Citation, 0, len(wm.Sources))
			for _, src := range wm.Sources {
				batch = append(batch, model.Citation{Title: src.Title, URL: src.URL})
			}
			m.MergeSources(batch)
		}
		conv.AddMessage(m)
	}

	s.conv = conv
	return nil
}

// Reset abandons the current conversation and starts a fresh one. The next
// Submit will create a new chat on the backend.
func (s *Session) Reset() {
	s.Abort()
	s.conv = model.NewConversation()
}
