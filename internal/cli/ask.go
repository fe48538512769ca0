// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/config"
	"github.com/tradeberg/berg-tui/internal/render"
)

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk runs a one-shot question and prints the answer to stdout.
// With --plain the raw text streams as it arrives; otherwise the completed
// answer is rendered as markdown with chart widgets.
func HandleAsk(args *ArgParser) error {
	question := args.Query()
	if question == "" {
		return fmt.Errorf("usage: berg ask <question>")
	}

	cfg := loadConfig()
	client := newBackendClient(cfg)
	plain := args.BoolFlag("plain")

	session := chat.NewSession(client)
	if cfg.Backend.IdleTimeoutSecs > 0 {
		session.SetIdleTimeout(time.Duration(cfg.Backend.IdleTimeoutSecs) * time.Second)
	}

	// Ctrl+C aborts the stream; the partial answer is still printed.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		session.Abort()
	}()

	if !plain {
		fmt.Fprintln(os.Stderr, infoStyle.Render("Analyzing markets..."))
	}

	if err := session.Submit(context.Background(), question); err != nil {
		return err
	}

	msg := session.Conversation().GetLastMessage()
	if msg == nil {
		return fmt.Errorf("no answer received")
	}

	// A terminal-bound stdout can fall behind the stream, and the feed
	// drops append events rather than block it. Print from the message
	// content instead of the event payloads so nothing is lost.
	printed := 0
	flush := func() {
		if !plain {
			return
		}
		cur := msg.Content()
		fmt.Print(cur[printed:])
		printed = len(cur)
	}

	aborted := false
drain:
	for e := range session.Events() {
		if e.MessageID != msg.ID {
			continue
		}
		switch e.Kind {
		case chat.EventAppend:
			flush()
		case chat.EventDone:
			flush()
			break drain
		case chat.EventAborted:
			flush()
			aborted = true
			break drain
		case chat.EventError:
			return e.Err
		}
	}

	if plain {
		fmt.Println()
	} else {
		width := askWidth(cfg)
		renderer, err := render.NewRenderer(width, newInterpreter(cfg))
		if err != nil {
			return err
		}
		fmt.Println(renderer.Message(msg.Content()))
	}

	if !args.BoolFlag("no-sources") && cfg.UI.ShowSources {
		if footer := render.SourcesFooter(msg.Sources()); footer != "" {
			fmt.Println(mutedStyle.Render(footer))
		}
	}

	if aborted {
		fmt.Fprintln(os.Stderr, warnStyle.Render("[stopped]"))
	}
	return nil
}

// askWidth picks the render width: config override, then terminal width,
// then a safe default for pipes.
func askWidth(cfg *config.Config) int {
	if cfg.UI.Width > 0 {
		return cfg.UI.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w - 2
	}
	return 80
}
