// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateChatRequest is the body of POST /api/chat/new.
type CreateChatRequest struct {
	Title string `json:"title,omitempty"`
}

// StreamRequest is the body of POST /api/chat/stream.
type StreamRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CreateChatResponse carries the server-assigned chat identifier.
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// WireMessage is one persisted message as the backend returns it.
// Role is the wire spelling; both "assistant" and "model" mean the
// assistant side.
type WireMessage struct {
	ID      string       `json:"id"`
	Role    string       `json:"role"`
	Content string       `json:"content"`
	Sources []WireSource `json:"sources,omitempty"`
}

// WireSource is one grounding citation attached to a persisted message.
type WireSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HistoryResponse is the body of GET /api/chat/{id}/messages.
type HistoryResponse struct {
	ChatID   string        `json:"chat_id"`
	Title    string        `json:"title,omitempty"`
	Messages []WireMessage `json:"messages"`
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
}
