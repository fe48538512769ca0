// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tradeberg/berg-tui/internal/model"
)

// ErrClosed is returned by operations on a closed archive.
var ErrClosed = errors.New("history: archive closed")

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is the local searchable record of completed exchanges.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive database at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordConversation archives every terminal message of a conversation.
// Messages already archived are skipped, so recording after each exchange
// is idempotent.
func (a *Archive) RecordConversation(ctx context.Context, conv *model.Conversation) error {
	if a.db == nil {
		return ErrClosed
	}
	if conv.ChatID == "" {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chats (chat_id, title, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ChatID, conv.GetTitle(), time.Now().Unix()); err != nil {
		return err
	}

	for _, m := range conv.Messages {
		if m.IsThinking() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO messages (message_id, chat_id, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			m.ID, conv.ChatID, m.Role.String(), m.Content(), m.Timestamp.Unix()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// =============================================================================
// QUERIES
// =============================================================================

// Hit is one full-text search result.
type Hit struct {
	ChatID    string
	ChatTitle string
	Role      model.Role
	Snippet   string
	CreatedAt time.Time
}

// Search runs a full-text query over archived message content.
func (a *Archive) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if a.db == nil {
		return nil, ErrClosed
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT m.chat_id, c.title, m.role,
		       snippet(messages_fts, 0, '>', '<', '...', 12),
		       m.created_at
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN chats c ON c.chat_id = m.chat_id
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var role string
		var created int64
		if err := rows.Scan(&h.ChatID, &h.ChatTitle, &role, &h.Snippet, &created); err != nil {
			return nil, err
		}
		h.Role = model.ParseRole(role)
		h.CreatedAt = time.Unix(created, 0)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ChatSummary is one archived chat for listings.
type ChatSummary struct {
	ChatID       string
	Title        string
	UpdatedAt    time.Time
	MessageCount int
}

// RecentChats lists archived chats, most recently updated first.
func (a *Archive) RecentChats(ctx context.Context, limit int) ([]ChatSummary, error) {
	if a.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT c.chat_id, c.title, c.updated_at, COUNT(m.id)
		FROM chats c
		LEFT JOIN messages m ON m.chat_id = c.chat_id
		GROUP BY c.chat_id
		ORDER BY c.updated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatSummary
	for rows.Next() {
		var s ChatSummary
		var updated int64
		if err := rows.Scan(&s.ChatID, &s.Title, &updated, &s.MessageCount); err != nil {
			return nil, err
		}
		s.UpdatedAt = time.Unix(updated, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteChat removes an archived chat and its messages.
func (a *Archive) DeleteChat(ctx context.Context, chatID string) error {
	if a.db == nil {
		return ErrClosed
	}
	_, err := a.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	return err
}

// =============================================================================
// PRUNING
// =============================================================================

// Prune removes archived chats older than maxAge and, when maxChats > 0,
// keeps only the maxChats most recently updated chats. Messages cascade
// with their chat. Returns the number of chats removed.
func (a *Archive) Prune(ctx context.Context, maxAge time.Duration, maxChats int) (int, error) {
	if a.db == nil {
		return 0, ErrClosed
	}

	removed := 0

	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).Unix()
		res, err := a.db.ExecContext(ctx,
			`DELETE FROM chats WHERE updated_at < ?`, cutoff)
		if err != nil {
			return removed, err
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}

	if maxChats > 0 {
		res, err := a.db.ExecContext(ctx, `
			DELETE FROM chats WHERE chat_id NOT IN (
				SELECT chat_id FROM chats ORDER BY updated_at DESC LIMIT ?
			)`, maxChats)
		if err != nil {
			return removed, err
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}

	return removed, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// ftsQuery quotes each term so user input is matched literally instead of
// being parsed as FTS5 query syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
