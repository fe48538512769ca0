// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats, messages and
// citations used across the TradeBerg terminal client.
package model

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "TradeBerg"
	default:
		return string(r)
	}
}

// ParseRole maps a wire-format role to an internal Role.
// The backend history endpoint emits both "assistant" and "model" for
// generated messages depending on its version.
func ParseRole(wire string) Role {
	switch wire {
	case "assistant", "model":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is one grounding source for an assistant answer. URL is never
// empty: entries without a URL are dropped at the decoding layer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat.
//
// Content is append-only while the message is live: Append grows it and
// nothing shrinks or rewrites it. Once the message reaches a terminal state
// (Finalize, Fail or Abort) the content is frozen and further appends are
// ignored.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// The stream goroutine mutates everything below while the UI reads it
	// on every event, so the whole streaming state shares one mutex:
	// content, lifecycle flags, sources and the step labels.
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	mu sync.RWMutex

	// thinking is true from creation until a terminal event arrives.
	thinking bool

	// aborted marks a user-cancelled stream. Content stays as streamed.
	aborted bool

	// failed marks a transport failure. Content ends with an apology line.
	failed bool

	// sources holds citations recovered from grounding metadata, in
	// arrival order, deduplicated by URL.
	sources []Citation

	// searchSteps are ephemeral UX labels shown while waiting for the
	// first token. Display-only, append-only.
	searchSteps []string

	content strings.Builder
}

// NewUserMessage creates a completed user message.
func NewUserMessage(content string) *Message {
	m := &Message{
		ID:        newID(),
		Role:      RoleUser,
		Timestamp: time.Now(),
	}
	m.content.WriteString(content)
	return m
}

// NewAssistantMessage creates a streaming assistant placeholder.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        newID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		thinking:  true,
	}
}

// NewHistoryMessage creates a terminal message rehydrated from the backend.
func NewHistoryMessage(id string, role Role, content string) *Message {
	if id == "" {
		id = newID()
	}
	m := &Message{
		ID:        id,
		Role:      role,
		Timestamp: time.Now(),
	}
	m.content.WriteString(content)
	return m
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Append adds visible text to a live message. No-op once terminal.
func (m *Message) Append(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.thinking {
		return
	}
	m.content.WriteString(text)
}

// Content returns the accumulated visible text.
func (m *Message) Content() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content.String()
}

// IsThinking reports whether the message is still streaming.
func (m *Message) IsThinking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.thinking
}

// Aborted reports whether the stream was cancelled by the user.
func (m *Message) Aborted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aborted
}

// Failed reports whether the stream died on a transport failure.
func (m *Message) Failed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failed
}

// Finalize freezes the message after a completed stream.
func (m *Message) Finalize() {
	m.mu.Lock()
	m.thinking = false
	m.mu.Unlock()
}

// Abort freezes the message after a user cancellation. Already-appended
// content is kept and no error text is added.
func (m *Message) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.thinking {
		return
	}
	m.thinking = false
	m.aborted = true
}

// MarkAborted restores the aborted flag on a terminal message, used when
// rehydrating a cached conversation.
func (m *Message) MarkAborted() {
	m.mu.Lock()
	m.aborted = true
	m.mu.Unlock()
}

// Fail appends the given error text and freezes the message.
func (m *Message) Fail(errText string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.thinking {
		return
	}
	m.content.WriteString(errText)
	m.thinking = false
	m.failed = true
}

// MergeSources merges a citation batch into the existing sources, keeping
// arrival order and dropping URLs already present.
func (m *Message) MergeSources(batch []Citation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range batch {
		if c.URL == "" {
			continue
		}
		if m.hasSource(c.URL) {
			continue
		}
		m.sources = append(m.sources, c)
	}
}

// hasSource is called with mu held.
func (m *Message) hasSource(url string) bool {
	for _, c := range m.sources {
		if c.URL == url {
			return true
		}
	}
	return false
}

// Sources returns a snapshot of the merged citations.
func (m *Message) Sources() []Citation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Citation, len(m.sources))
	copy(out, m.sources)
	return out
}

// AddSearchStep appends a display-only progress label.
func (m *Message) AddSearchStep(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.thinking {
		return
	}
	m.searchSteps = append(m.searchSteps, step)
}

// SearchSteps returns a snapshot of the progress labels.
func (m *Message) SearchSteps() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.searchSteps))
	copy(out, m.searchSteps)
	return out
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content.Len() == 0
}

// Preview returns a truncated preview of the message content.
// Rune-based truncation keeps multi-byte characters intact.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content())
	if len(runes) <= maxLen {
		return m.Content()
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newID creates a unique message ID.
func newID() string {
	return "msg_" + uuid.NewString()
}
