// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches conversations on disk so recently opened chats
// survive restarts without a round trip to the backend. The backend stays
// the source of truth; entries expire after a TTL.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tradeberg/berg-tui/internal/model"
	"github.com/tradeberg/berg-tui/internal/util"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredConversation is the on-disk shape of a cached chat.
type StoredConversation struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`
}

// StoredMessage is one persisted message.
type StoredMessage struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Aborted   bool             `json:"aborted,omitempty"`
	Sources   []model.Citation `json:"sources,omitempty"`
}

// ConversationMeta contains metadata for listing cached chats.
type ConversationMeta struct {
	ChatID       string    `json:"chat_id"`
	Title        string    `json:"title"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ConversationError represents a cache error comparable with errors.Is.
type ConversationError struct {
	Message string
}

func (e *ConversationError) Error() string {
	return e.Message
}

func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrConversationNotFound is returned when a chat is not cached.
var ErrConversationNotFound = &ConversationError{Message: "conversation not cached"}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles the on-disk conversation cache.
type ConversationStore struct {
	// BaseDir is the cache directory.
	BaseDir string

	// TTL expires cached entries; zero disables expiry.
	TTL time.Duration
}

// NewConversationStore creates a store rooted at baseDir.
func NewConversationStore(baseDir string, ttl time.Duration) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ConversationStore{BaseDir: baseDir, TTL: ttl}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save caches a conversation. Conversations without a backend chat id are
// not cached; there is nothing to rehydrate them against.
func (s *ConversationStore) Save(conv *model.Conversation) error {
	if conv.ChatID == "" {
		return nil
	}

	stored := fromModel(conv)
	stored.UpdatedAt = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return util.AtomicWriteFile(s.filePath(conv.ChatID), data, 0644)
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a cached conversation by chat id. Expired entries are
// removed and reported as missing.
func (s *ConversationStore) Load(chatID string) (*model.Conversation, error) {
	stored, err := s.loadStored(chatID)
	if err != nil {
		return nil, err
	}
	return toModel(stored), nil
}

func (s *ConversationStore) loadStored(chatID string) (*StoredConversation, error) {
	data, err := os.ReadFile(s.filePath(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var stored StoredConversation
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	if s.expired(stored.UpdatedAt) {
		os.Remove(s.filePath(chatID))
		return nil, ErrConversationNotFound
	}
	return &stored, nil
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns cached chats, most recently updated first. Corrupted or
// expired entries are skipped.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	var metas []ConversationMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		chatID := strings.TrimSuffix(entry.Name(), ".json")
		stored, err := s.loadStored(chatID)
		if err != nil {
			continue
		}

		preview := ""
		for _, msg := range stored.Messages {
			if msg.Role == string(model.RoleUser) {
				preview = util.TruncateRunes(msg.Content, 80)
				break
			}
		}

		metas = append(metas, ConversationMeta{
			ChatID:       stored.ChatID,
			Title:        stored.Title,
			UpdatedAt:    stored.UpdatedAt,
			MessageCount: len(stored.Messages),
			Preview:      preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a cached conversation.
func (s *ConversationStore) Delete(chatID string) error {
	if err := os.Remove(s.filePath(chatID)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// Clear removes every cached conversation.
func (s *ConversationStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// MODEL CONVERSION
// =============================================================================

func fromModel(conv *model.Conversation) *StoredConversation {
	stored := &StoredConversation{
		ChatID:    conv.ChatID,
		Title:     conv.GetTitle(),
		CreatedAt: conv.CreatedAt,
	}
	for _, m := range conv.Messages {
		// Live messages are never cached; a crash mid-stream leaves the
		// cache at the last terminal state.
		if m.IsThinking() {
			continue
		}
		stored.Messages = append(stored.Messages, StoredMessage{
			ID:        m.ID,
			Role:      m.Role.String(),
			Content:   m.Content(),
			Timestamp: m.Timestamp,
			Aborted:   m.Aborted(),
			Sources:   m.Sources(),
		})
	}
	return stored
}

func toModel(stored *StoredConversation) *model.Conversation {
	conv := model.NewConversation()
	conv.ChatID = stored.ChatID
	conv.Title = stored.Title
	conv.CreatedAt = stored.CreatedAt
	conv.UpdatedAt = stored.UpdatedAt

	for _, sm := range stored.Messages {
		m := model.NewHistoryMessage(sm.ID, model.ParseRole(sm.Role), sm.Content)
		m.Timestamp = sm.Timestamp
		if sm.Aborted {
			m.MarkAborted()
		}
		m.MergeSources(sm.Sources)
		conv.AddMessage(m)
	}
	return conv
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *ConversationStore) filePath(chatID string) string {
	return filepath.Join(s.BaseDir, chatID+".json")
}

func (s *ConversationStore) expired(updatedAt time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return time.Since(updatedAt) > s.TTL
}
