// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/ui/styles"
)

// fakeBackend serves a scripted response body for every stream.
type fakeBackend struct {
	body string
}

func (f *fakeBackend) CreateChat(ctx context.Context, title string) (string, error) {
	return "chat_test", nil
}

func (f *fakeBackend) History(ctx context.Context, chatID string) (*api.HistoryResponse, error) {
	return nil, errors.New("no history in this fake")
}

func (f *fakeBackend) StreamMessage(ctx context.Context, chatID, message string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func newTestModel(t *testing.T, body string) Model {
	t.Helper()

	session := chat.NewSession(&fakeBackend{body: body})
	m, err := New(session, nil, styles.NewTheme("strip"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// pumpUntil drains session events through Update until an event of the
// wanted kind has been handled.
func pumpUntil(t *testing.T, m Model, kind chat.EventKind) Model {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-m.Session().Events():
			next, _ := m.Update(SessionEventMsg{Event: e})
			m = next.(Model)
			if e.Kind == kind {
				return m
			}
		case <-deadline:
			t.Fatal("timed out waiting for session event")
		}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func TestResizeMakesScreenReady(t *testing.T) {
	m := newTestModel(t, "")

	view := m.View()
	if !strings.Contains(view, "TradeBerg") {
		t.Error("header missing from view")
	}
	if !strings.Contains(view, "Welcome to TradeBerg") {
		t.Error("welcome screen missing for empty conversation")
	}
}

func TestViewBeforeResize(t *testing.T) {
	session := chat.NewSession(&fakeBackend{})
	m, err := New(session, nil, styles.NewTheme("strip"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.Contains(m.View(), "Starting") {
		t.Error("pre-resize view should show the startup placeholder")
	}
}

// =============================================================================
// SUBMIT FLOW
// =============================================================================

func TestSubmitEchoesAndStartsStream(t *testing.T) {
	m := newTestModel(t, "The market is open.")
	m.input.SetValue("What is the BTC outlook?")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	conv := m.Session().Conversation()
	if conv.MessageCount() != 2 {
		t.Fatalf("messages = %d, want user echo plus placeholder", conv.MessageCount())
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want cleared after submit", m.input.Value())
	}

	m = pumpUntil(t, m, chat.EventDone)
	if !strings.Contains(m.View(), "The market is open.") {
		t.Error("completed answer missing from view")
	}
}

func TestSubmitWhitespaceIsIgnored(t *testing.T) {
	m := newTestModel(t, "")
	m.input.SetValue("   ")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if !m.Session().Conversation().IsEmpty() {
		t.Error("whitespace prompt must not reach the session")
	}
}

func TestNewChatResetsConversation(t *testing.T) {
	m := newTestModel(t, "answer")
	m.input.SetValue("first question")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = pumpUntil(t, next.(Model), chat.EventDone)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	m = next.(Model)

	if !m.Session().Conversation().IsEmpty() {
		t.Error("conversation must be empty after new chat")
	}
	if !strings.Contains(m.View(), "Welcome to TradeBerg") {
		t.Error("welcome screen missing after reset")
	}
}

// =============================================================================
// STATUS AND ERRORS
// =============================================================================

func TestBackendStatusShown(t *testing.T) {
	m := newTestModel(t, "")

	next, _ := m.Update(BackendStatusMsg{Online: false, Err: api.ErrUnreachable})
	m = next.(Model)
	if !strings.Contains(m.View(), "offline") {
		t.Error("offline indicator missing")
	}

	next, _ = m.Update(BackendStatusMsg{Online: true})
	m = next.(Model)
	if !strings.Contains(m.View(), "online") {
		t.Error("online indicator missing")
	}
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{api.ErrUnreachable, "not reachable"},
		{api.ErrTimeout, "too long"},
		{api.ErrChatNotFound, "no longer exists"},
		{api.ErrRateLimited, "Rate limited"},
		{errors.New("boom"), "boom"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := friendlyError(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("friendlyError(%v) = %q, want substring %q", tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// KEY MAP
// =============================================================================

func TestShortHelpBindings(t *testing.T) {
	keys := DefaultKeyMap()
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help is empty")
	}
	for _, b := range keys.ShortHelp() {
		if b.Help().Key == "" || b.Help().Desc == "" {
			t.Errorf("binding %v missing help text", b.Keys())
		}
	}
}
