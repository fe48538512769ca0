// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/config"
	"github.com/tradeberg/berg-tui/internal/history"
	"github.com/tradeberg/berg-tui/internal/render"
	"github.com/tradeberg/berg-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with a persistent history file.
// USABILITY: Supports arrow keys for history navigation and line editing.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &replInput{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *replInput) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with owner-only permissions and releases the terminal.
func (r *replInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL COMMAND
// =============================================================================

// HandleChat runs the line-mode REPL. It covers terminals where the full
// TUI is unwanted: answers stream as plain text, charts render as unicode
// widgets, and slash commands manage chats.
func HandleChat(args *ArgParser) error {
	cfg := loadConfig()
	client := newBackendClient(cfg)

	session := chat.NewSession(client)
	if cfg.Backend.IdleTimeoutSecs > 0 {
		session.SetIdleTimeout(time.Duration(cfg.Backend.IdleTimeoutSecs) * time.Second)
	}

	var store *storage.ConversationStore
	if cfg.Cache.Enabled {
		if dir, err := cfg.CacheDir(); err == nil {
			store, _ = storage.NewConversationStore(dir, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		}
	}

	var archive *history.Archive
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			archive, _ = history.Open(path)
		}
	}
	if archive != nil {
		defer archive.Close()
	}

	ctx := context.Background()
	if err := client.CheckRunning(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s backend not reachable at %s\n",
			warnStyle.Render("[offline]"), cfg.Backend.BaseURL)
	}

	fmt.Println(headerStyle.Render("TradeBerg") + infoStyle.Render("  line mode, /help for commands"))

	input := newReplInput()
	defer input.close()

	for {
		text, err := input.read(promptStyle.Render("berg> "))
		if err != nil {
			// Ctrl+C or Ctrl+D ends the session.
			fmt.Println()
			session.Abort()
			persistREPL(session, store, archive)
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			quit := replCommand(text, session, store, archive)
			if quit {
				persistREPL(session, store, archive)
				return nil
			}
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			persistREPL(session, store, archive)
			return nil
		}

		if err := streamAnswer(ctx, session, text); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
			continue
		}
		persistREPL(session, store, archive)
	}
}

// streamAnswer submits a prompt and prints the answer as it streams. Text
// is printed from the message content rather than the append payloads, so
// appends dropped from a full feed never lose answer text.
func streamAnswer(ctx context.Context, session *chat.Session, prompt string) error {
	if err := session.Submit(ctx, prompt); err != nil {
		return err
	}

	msg := session.Conversation().GetLastMessage()
	if msg == nil {
		return fmt.Errorf("no answer received")
	}

	printed := 0
	flush := func() {
		cur := msg.Content()
		fmt.Print(cur[printed:])
		printed = len(cur)
	}

	fmt.Println()
	for e := range session.Events() {
		if e.MessageID != msg.ID {
			continue
		}
		switch e.Kind {
		case chat.EventAppend:
			flush()
		case chat.EventDone:
			flush()
			fmt.Println()
			printSources(session)
			return nil
		case chat.EventAborted:
			flush()
			fmt.Println()
			fmt.Println(warnStyle.Render("[stopped]"))
			return nil
		case chat.EventError:
			fmt.Println()
			return e.Err
		}
	}
	return nil
}

func printSources(session *chat.Session) {
	msg := session.Conversation().GetLastMessage()
	if msg == nil {
		return
	}
	if footer := render.SourcesFooter(msg.Sources()); footer != "" {
		fmt.Println(mutedStyle.Render(footer))
	}
	fmt.Println()
}

// replCommand executes a slash command. Returns true when the REPL should
// exit.
func replCommand(text string, session *chat.Session, store *storage.ConversationStore, archive *history.Archive) bool {
	fields := strings.Fields(text)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/new":
		persistREPL(session, store, archive)
		session.Reset()
		fmt.Println(infoStyle.Render("started a new chat"))

	case "/open":
		if len(fields) < 2 {
			fmt.Println(warnStyle.Render("usage: /open <chat-id>"))
			return false
		}
		if err := session.Open(context.Background(), fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
			return false
		}
		conv := session.Conversation()
		fmt.Printf("%s %s (%d messages)\n",
			infoStyle.Render("opened"), conv.GetTitle(), conv.MessageCount())

	case "/history":
		if archive == nil {
			fmt.Println(warnStyle.Render("history archive is disabled in config"))
			return false
		}
		query := strings.Join(fields[1:], " ")
		printHistoryHits(archive, query, 10)

	case "/id":
		id := session.Conversation().ChatID
		if id == "" {
			fmt.Println(infoStyle.Render("chat not created yet"))
		} else {
			fmt.Println(id)
		}

	case "/help":
		fmt.Println("  /new            start a new chat")
		fmt.Println("  /open <id>      open a chat from the backend")
		fmt.Println("  /history <q>    search archived answers")
		fmt.Println("  /id             show the current chat id")
		fmt.Println("  /quit           exit")

	default:
		fmt.Println(warnStyle.Render("unknown command, /help for the list"))
	}
	return false
}

func persistREPL(session *chat.Session, store *storage.ConversationStore, archive *history.Archive) {
	conv := session.Conversation()
	if conv == nil || conv.ChatID == "" {
		return
	}
	if store != nil {
		store.Save(conv)
	}
	if archive != nil {
		archive.RecordConversation(context.Background(), conv)
	}
}
