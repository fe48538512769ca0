// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/model"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeCall scripts one StreamMessage response.
type fakeCall struct {
	chunks []string
	hold   bool // keep the stream open until the context is cancelled
}

type fakeBackend struct {
	chatID    string
	createErr error
	created   int

	history    *api.HistoryResponse
	historyErr error

	calls   []fakeCall
	call    int
	prompts []string
}

func (f *fakeBackend) CreateChat(ctx context.Context, title string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	if f.chatID == "" {
		f.chatID = "chat_test"
	}
	return f.chatID, nil
}

func (f *fakeBackend) History(ctx context.Context, chatID string) (*api.HistoryResponse, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeBackend) StreamMessage(ctx context.Context, chatID, message string) (io.ReadCloser, error) {
	f.prompts = append(f.prompts, message)

	call := fakeCall{}
	if f.call < len(f.calls) {
		call = f.calls[f.call]
	}
	f.call++

	chunks := make(chan string, len(call.chunks)+1)
	for _, c := range call.chunks {
		chunks <- c
	}
	if !call.hold {
		close(chunks)
	}
	return &fakeStream{ctx: ctx, chunks: chunks}, nil
}

// fakeStream mimics an HTTP response body: reads unblock with an error when
// the request context is cancelled.
type fakeStream struct {
	ctx    context.Context
	chunks chan string
}

func (f *fakeStream) Read(p []byte) (int, error) {
	select {
	case c, ok := <-f.chunks:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, c), nil
	case <-f.ctx.Done():
		return 0, f.ctx.Err()
	}
}

func (f *fakeStream) Close() error { return nil }

// =============================================================================
// TEST HELPERS
// =============================================================================

// waitFor drains the event feed until an event of the wanted kind arrives.
func waitFor(t *testing.T, s *Session, kind EventKind) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-s.Events():
			if e.Kind == kind {
				return e
			}
			if e.Kind == EventError && kind != EventError {
				t.Fatalf("unexpected error event: %v", e.Err)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

const groundingMarker = `<!-- GROUNDING_METADATA: {"groundingChunks":[{"web":{"title":"CoinDesk","uri":"https://coindesk.com/markets/btc"}}]} -->`

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitEmptyPromptRejected(t *testing.T) {
	s := NewSession(&fakeBackend{})

	if err := s.Submit(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
	if !s.Conversation().IsEmpty() {
		t.Error("rejected prompt must not be echoed")
	}
}

func TestSubmitStreamsToCompletion(t *testing.T) {
	backend := &fakeBackend{
		calls: []fakeCall{{chunks: []string{
			"Bitcoin is ",
			"consolidating near key support." + groundingMarker,
		}}},
	}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "What is the BTC outlook?"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := waitFor(t, s, EventDone)

	conv := s.Conversation()
	if conv.ChatID != "chat_test" || backend.created != 1 {
		t.Errorf("chat id = %q, created = %d", conv.ChatID, backend.created)
	}
	if conv.MessageCount() != 2 {
		t.Fatalf("messages = %d, want user + assistant", conv.MessageCount())
	}

	asst := conv.GetMessageByID(done.MessageID)
	if asst == nil || asst.Role != model.RoleAssistant {
		t.Fatalf("done event does not name the assistant message")
	}
	if got := asst.Content(); got != "Bitcoin is consolidating near key support." {
		t.Errorf("content = %q", got)
	}
	if strings.Contains(asst.Content(), "GROUNDING") {
		t.Error("marker leaked into visible content")
	}
	if asst.IsThinking() {
		t.Error("message must be terminal after done")
	}
	if sources := asst.Sources(); len(sources) != 1 || sources[0].Title != "CoinDesk" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestCreateChatFailureDiscardsEcho(t *testing.T) {
	s := NewSession(&fakeBackend{createErr: errors.New("backend down")})

	if err := s.Submit(context.Background(), "hello"); err == nil {
		t.Fatal("expected create-chat error")
	}
	if !s.Conversation().IsEmpty() {
		t.Error("failed submit must leave no half-started exchange")
	}
	if s.Conversation().ChatID != "" {
		t.Error("chat id must stay unset")
	}
}

// =============================================================================
// ABORT
// =============================================================================

func TestAbortKeepsPartialContent(t *testing.T) {
	backend := &fakeBackend{
		calls: []fakeCall{{chunks: []string{"partial answer"}, hold: true}},
	}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, s, EventAppend)

	s.Abort()
	aborted := waitFor(t, s, EventAborted)

	asst := s.Conversation().GetMessageByID(aborted.MessageID)
	if asst == nil {
		t.Fatal("aborted event names unknown message")
	}
	if !asst.Aborted() || asst.Failed() || asst.IsThinking() {
		t.Errorf("flags = aborted:%v failed:%v thinking:%v", asst.Aborted(), asst.Failed(), asst.IsThinking())
	}
	if got := asst.Content(); got != "partial answer" {
		t.Errorf("content = %q, want streamed partial kept verbatim", got)
	}
}

func TestSubmitAbortsLiveStream(t *testing.T) {
	backend := &fakeBackend{
		calls: []fakeCall{
			{chunks: []string{"first "}, hold: true},
			{chunks: []string{"second answer"}},
		},
	}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "first question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, s, EventAppend)

	if err := s.Submit(context.Background(), "second question"); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	waitFor(t, s, EventAborted)
	done := waitFor(t, s, EventDone)

	if len(backend.prompts) != 2 {
		t.Fatalf("prompts = %v", backend.prompts)
	}
	if backend.created != 1 {
		t.Errorf("created = %d, chat must be reused", backend.created)
	}

	conv := s.Conversation()
	if conv.MessageCount() != 4 {
		t.Fatalf("messages = %d", conv.MessageCount())
	}
	first := conv.Messages[1]
	if !first.Aborted() || first.Content() != "first " {
		t.Errorf("first assistant = aborted:%v content:%q", first.Aborted(), first.Content())
	}
	second := conv.GetMessageByID(done.MessageID)
	if second.Content() != "second answer" {
		t.Errorf("second assistant = %q", second.Content())
	}
}

// =============================================================================
// FAILURE
// =============================================================================

func TestIdleTimeoutFailsStream(t *testing.T) {
	backend := &fakeBackend{
		calls: []fakeCall{{chunks: []string{"started"}, hold: true}},
	}
	s := NewSession(backend)
	s.SetIdleTimeout(30 * time.Millisecond)

	if err := s.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	failed := waitFor(t, s, EventError)
	asst := s.Conversation().GetMessageByID(failed.MessageID)
	if !asst.Failed() || asst.Aborted() {
		t.Errorf("flags = failed:%v aborted:%v", asst.Failed(), asst.Aborted())
	}
	if !strings.HasSuffix(asst.Content(), failureText) {
		t.Errorf("content = %q, want failure text appended", asst.Content())
	}
	if !strings.HasPrefix(asst.Content(), "started") {
		t.Error("partial content before the failure must be kept")
	}
}

// =============================================================================
// EVENT FEED
// =============================================================================

// A consumer that falls behind (or never drains) overflows the feed with
// append events. The terminal event must survive the overflow and arrive
// after the retained backlog, or a range-over-Events consumer hangs forever.
func TestTerminalEventSurvivesFullFeed(t *testing.T) {
	chunks := make([]string, 600)
	for i := range chunks {
		chunks[i] = "x"
	}
	backend := &fakeBackend{calls: []fakeCall{{chunks: chunks}}}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Let the whole stream finish while nothing drains the feed.
	deadline := time.Now().Add(5 * time.Second)
	for s.IsStreaming() {
		if time.Now().After(deadline) {
			t.Fatal("stream never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sawTerminal := false
	var last Event
drain:
	for {
		select {
		case e := <-s.Events():
			last = e
			if e.Kind == EventDone {
				sawTerminal = true
			}
		default:
			break drain
		}
	}

	if !sawTerminal {
		t.Fatal("terminal event was dropped from the full feed")
	}
	if last.Kind != EventDone {
		t.Errorf("last queued event kind = %d, want done newest in the feed", last.Kind)
	}

	msg := s.Conversation().GetMessageByID(last.MessageID)
	if got := len(msg.Content()); got != 600 {
		t.Errorf("content length = %d, want every chunk appended despite dropped events", got)
	}
}

// The stream goroutine mutates flags and sources while a consumer reads
// them after every event. Run under the race detector this covers the
// message's internal locking.
func TestConcurrentReadsDuringStream(t *testing.T) {
	chunks := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		marker := fmt.Sprintf(`<!-- GROUNDING_METADATA: {"groundingChunks":[{"web":{"title":"S","uri":"https://s.example/%d"}}]} -->`, i)
		chunks = append(chunks, "tick "+marker)
	}
	backend := &fakeBackend{calls: []fakeCall{{chunks: chunks}}}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "question"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	msg := s.Conversation().GetLastMessage()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-s.Events():
			// Touch everything the UI reads on each event.
			_ = msg.Content()
			_ = msg.IsThinking()
			_ = msg.Aborted()
			_ = msg.Failed()
			_ = msg.SearchSteps()
			_ = msg.Sources()

			switch e.Kind {
			case EventDone:
				if got := len(msg.Sources()); got != 120 {
					t.Errorf("sources = %d, want one per distinct URL", got)
				}
				return
			case EventError:
				t.Fatalf("unexpected error event: %v", e.Err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for done")
		}
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func TestOpenRehydratesConversation(t *testing.T) {
	backend := &fakeBackend{
		history: &api.HistoryResponse{
			ChatID: "chat_77",
			Title:  "ETH levels",
			Messages: []api.WireMessage{
				{ID: "m1", Role: "user", Content: "key levels?"},
				{ID: "m2", Role: "model", Content: "Watch 3.2k.",
					Sources: []api.WireSource{{Title: "CoinDesk", URL: "https://coindesk.com/x"}}},
			},
		},
	}
	s := NewSession(backend)

	if err := s.Open(context.Background(), "chat_77"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	conv := s.Conversation()
	if conv.ChatID != "chat_77" || conv.Title != "ETH levels" {
		t.Errorf("conv = %q/%q", conv.ChatID, conv.Title)
	}
	if conv.MessageCount() != 2 {
		t.Fatalf("messages = %d", conv.MessageCount())
	}
	asst := conv.Messages[1]
	if asst.Role != model.RoleAssistant {
		t.Errorf("wire role %q must map to assistant", "model")
	}
	if asst.IsThinking() {
		t.Error("rehydrated messages are terminal")
	}
	if sources := asst.Sources(); len(sources) != 1 || sources[0].URL != "https://coindesk.com/x" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestResetStartsFreshChat(t *testing.T) {
	backend := &fakeBackend{
		calls: []fakeCall{{chunks: []string{"a"}}, {chunks: []string{"b"}}},
	}
	s := NewSession(backend)

	if err := s.Submit(context.Background(), "one"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, s, EventDone)

	s.Reset()
	if !s.Conversation().IsEmpty() || s.Conversation().ChatID != "" {
		t.Fatal("reset must abandon chat identity")
	}

	if err := s.Submit(context.Background(), "two"); err != nil {
		t.Fatalf("Submit after reset: %v", err)
	}
	waitFor(t, s, EventDone)

	if backend.created != 2 {
		t.Errorf("created = %d, want a new backend chat after reset", backend.created)
	}
}
