// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tradeberg/berg-tui/internal/history"
)

// =============================================================================
// HISTORY COMMAND
// =============================================================================

// HandleHistory searches the local archive, or lists archived chats with
// --chats or when no query is given.
func HandleHistory(args *ArgParser) error {
	cfg := loadConfig()

	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	archive, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open history archive: %w", err)
	}
	defer archive.Close()

	if days := args.FlagIntOrDefault("prune-days", 0); days > 0 || args.HasFlag("keep") {
		keep := args.FlagIntOrDefault("keep", 0)
		removed, err := archive.Prune(context.Background(),
			time.Duration(days)*24*time.Hour, keep)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d chat(s)\n", removed)
		return nil
	}

	limit := args.FlagIntOrDefault("limit", 20)
	query := args.Query()

	if args.BoolFlag("chats") || query == "" {
		return printRecentChats(archive, limit)
	}

	printHistoryHits(archive, query, limit)
	return nil
}

func printRecentChats(archive *history.Archive, limit int) error {
	chats, err := archive.RecentChats(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println(infoStyle.Render("no archived chats yet"))
		return nil
	}

	for _, c := range chats {
		fmt.Printf("%s  %s  %s\n",
			headerStyle.Render(c.ChatID),
			c.Title,
			mutedStyle.Render(fmt.Sprintf("%d messages, %s",
				c.MessageCount, c.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	return nil
}

// printHistoryHits runs a search and prints one line per hit. The snippet
// markers from the FTS engine are restyled as highlights.
func printHistoryHits(archive *history.Archive, query string, limit int) {
	hits, err := archive.Search(context.Background(), query, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}
	if len(hits) == 0 {
		fmt.Println(infoStyle.Render("no matches"))
		return
	}

	for _, h := range hits {
		snippet := strings.ReplaceAll(h.Snippet, ">", "")
		snippet = strings.ReplaceAll(snippet, "<", "")
		fmt.Printf("%s  %s\n    %s\n",
			headerStyle.Render(h.ChatID),
			mutedStyle.Render(string(h.Role)+", "+h.CreatedAt.Format("2006-01-02")),
			snippet)
	}
}
