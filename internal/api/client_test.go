// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:           url,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
	})
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testClient(srv.URL).CheckRunning(context.Background()); err != nil {
		t.Fatalf("CheckRunning: %v", err)
	}
}

func TestCheckRunningUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before use

	err := testClient(srv.URL).CheckRunning(context.Background())
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

// =============================================================================
// CREATE CHAT
// =============================================================================

func TestCreateChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat/new" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req CreateChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Title != "BTC outlook" {
			t.Errorf("title = %q", req.Title)
		}
		json.NewEncoder(w).Encode(CreateChatResponse{ChatID: "chat_42"})
	}))
	defer srv.Close()

	id, err := testClient(srv.URL).CreateChat(context.Background(), "BTC outlook")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if id != "chat_42" {
		t.Errorf("chat id = %q", id)
	}
}

func TestCreateChatEmptyIDRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CreateChatResponse{})
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).CreateChat(context.Background(), "t"); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestBackendErrorEnvelopeSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(apiError{Error: "title too long"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateChat(context.Background(), "t")
	if err == nil || err.Error() != "title too long" {
		t.Fatalf("err = %v, want backend message", err)
	}
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/chat_42/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HistoryResponse{
			ChatID: "chat_42",
			Messages: []WireMessage{
				{ID: "m1", Role: "user", Content: "hi"},
				{ID: "m2", Role: "model", Content: "hello", Sources: []WireSource{{Title: "CoinDesk", URL: "https://coindesk.com"}}},
			},
		})
	}))
	defer srv.Close()

	h, err := testClient(srv.URL).History(context.Background(), "chat_42")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Messages) != 2 || h.Messages[1].Sources[0].URL != "https://coindesk.com" {
		t.Errorf("history = %+v", h)
	}
}

func TestHistoryChatNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).History(context.Background(), "nope")
	if !IsChatNotFound(err) {
		t.Fatalf("expected chat-not-found, got %v", err)
	}
}

// =============================================================================
// STREAMING
// =============================================================================

func TestStreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat/stream" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ChatID != "chat_42" || req.Message != "outlook?" {
			t.Errorf("request = %+v", req)
		}
		io.WriteString(w, "Bitcoin is consolidating.")
	}))
	defer srv.Close()

	body, err := testClient(srv.URL).StreamMessage(context.Background(), "chat_42", "outlook?")
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(data) != "Bitcoin is consolidating." {
		t.Errorf("stream = %q", data)
	}
}

func TestStreamMessageCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "partial")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	body, err := testClient(srv.URL).StreamMessage(ctx, "c", "m")
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	defer body.Close()

	buf := make([]byte, 16)
	if _, err := body.Read(buf); err != nil {
		t.Fatalf("first read: %v", err)
	}

	cancel()
	if _, err := io.ReadAll(body); err == nil {
		t.Fatal("expected read error after cancel")
	}
}

func TestStreamMessageRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).StreamMessage(context.Background(), "c", "m")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate-limited, got %v", err)
	}
}
