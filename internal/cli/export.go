// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/chart/svg"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/config"
	"github.com/tradeberg/berg-tui/internal/model"
	"github.com/tradeberg/berg-tui/internal/render"
	"github.com/tradeberg/berg-tui/internal/storage"
	"github.com/tradeberg/berg-tui/internal/util"
)

// =============================================================================
// EXPORT COMMAND
// =============================================================================

// HandleExport renders every chart in a chat's answers to SVG files.
// The chat is loaded from the local cache first, then from the backend.
func HandleExport(args *ArgParser) error {
	chatID := args.Positional(0)
	if chatID == "" {
		return fmt.Errorf("usage: berg export <chat-id> [--out DIR] [--width N]")
	}

	cfg := loadConfig()

	conv, err := loadConversation(cfg, chatID)
	if err != nil {
		return err
	}

	outDir := args.Flag("out")
	if outDir == "" {
		outDir = cfg.Chart.ExportDir
	}
	if outDir == "" {
		outDir = "."
	}

	width := args.FlagIntOrDefault("width", cfg.Chart.ExportWidth)
	if width <= 0 {
		width = 640
	}

	written, skipped, err := exportCharts(conv, newInterpreter(cfg), outDir, width)
	if err != nil {
		return err
	}

	for _, path := range written {
		fmt.Println(path)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "%s %d chart(s) have no SVG renderer yet\n",
			warnStyle.Render("[skipped]"), skipped)
	}
	if len(written) == 0 && skipped == 0 {
		fmt.Println(infoStyle.Render("no charts found in this chat"))
	}
	return nil
}

// loadConversation prefers the local cache and falls back to the backend.
func loadConversation(cfg *config.Config, chatID string) (*model.Conversation, error) {
	if cfg.Cache.Enabled {
		if dir, err := cfg.CacheDir(); err == nil {
			if store, err := storage.NewConversationStore(dir, time.Duration(cfg.Cache.TTLHours)*time.Hour); err == nil {
				conv, err := store.Load(chatID)
				if err == nil {
					return conv, nil
				}
				if !errors.Is(err, storage.ErrConversationNotFound) {
					return nil, err
				}
			}
		}
	}

	session := chat.NewSession(newBackendClient(cfg))
	if err := session.Open(context.Background(), chatID); err != nil {
		return nil, err
	}
	return session.Conversation(), nil
}

// exportCharts walks the assistant answers, renders each chart segment and
// writes it to outDir. Returns the written paths and the count of segments
// without an SVG renderer.
func exportCharts(conv *model.Conversation, interp *chart.Interpreter, outDir string, width int) ([]string, int, error) {
	var written []string
	skipped := 0
	n := 0

	for _, msg := range conv.Messages {
		if msg.Role != model.RoleAssistant {
			continue
		}
		for _, seg := range render.Split(interp, msg.Content()) {
			if seg.Kind != render.SegmentChart {
				continue
			}

			var doc string
			var err error
			switch m := seg.Model.(type) {
			case *chart.ChartModel:
				doc, err = svg.Render(m, width)
			case *chart.TableModel:
				doc, err = svg.RenderTable(m, width)
			default:
				skipped++
				continue
			}
			if err != nil {
				return written, skipped, err
			}

			n++
			path := filepath.Join(outDir, fmt.Sprintf("%s_chart_%02d.svg", conv.ChatID, n))
			if err := util.AtomicWriteFile(path, []byte(doc), 0644); err != nil {
				return written, skipped, err
			}
			written = append(written, path)
		}
	}
	return written, skipped, nil
}
