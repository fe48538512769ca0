// berg - A terminal client for the TradeBerg market intelligence service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/cli"
	"github.com/tradeberg/berg-tui/internal/config"
	"github.com/tradeberg/berg-tui/internal/history"
	"github.com/tradeberg/berg-tui/internal/storage"
	uichat "github.com/tradeberg/berg-tui/internal/ui/chat"
	"github.com/tradeberg/berg-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI()
	case cli.CmdAsk:
		exitOnError(cli.HandleAsk(args))
	case cli.CmdChat:
		exitOnError(cli.HandleChat(args))
	case cli.CmdHistory:
		exitOnError(cli.HandleHistory(args))
	case cli.CmdExport:
		exitOnError(cli.HandleExport(args))
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v (using defaults)\n", err)
		cfg = config.Default()
	}

	logger := newLogger()

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
	})

	session := chat.NewSession(client)
	session.SetLogger(logger)
	if cfg.Backend.IdleTimeoutSecs > 0 {
		session.SetIdleTimeout(time.Duration(cfg.Backend.IdleTimeoutSecs) * time.Second)
	}

	theme := styles.NewTheme(cfg.UI.Theme)
	m, err := uichat.New(session, client, theme, newInterpreter(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	m.Logger = logger

	if cfg.Cache.Enabled {
		if dir, err := cfg.CacheDir(); err == nil {
			ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
			if store, err := storage.NewConversationStore(dir, ttl); err == nil {
				m.Store = store
			}
		}
	}

	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			if archive, err := history.Open(path); err == nil {
				defer archive.Close()
				m.Archive = archive
			}
		}
	}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Config hot reload: theme and chart tag changes apply to the running
	// screen without a restart.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if path, err := config.ConfigPathTOML(); err == nil {
		go config.Watch(watchCtx, path, logger, func(next *config.Config) {
			program.Send(uichat.ConfigReloadedMsg{
				Theme:  styles.NewTheme(next.UI.Theme),
				Interp: newInterpreter(next),
			})
		})
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newInterpreter builds the chart interpreter with the extra fence tags from
// config added to the default vocabulary.
func newInterpreter(cfg *config.Config) *chart.Interpreter {
	tags := chart.DefaultTags()
	for _, extra := range cfg.Chart.ExtraTags {
		if extra != "" {
			tags[extra] = chart.HintAuto
		}
	}
	return chart.NewInterpreter(tags)
}

// newLogger writes to berg.log in the config directory when BERG_DEBUG is
// set. Logging to stderr would corrupt the alternate screen, so the default
// is to discard.
func newLogger() *log.Logger {
	if os.Getenv("BERG_DEBUG") == "" {
		return log.New(io.Discard, "", 0)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return log.New(io.Discard, "", 0)
	}
	if err := config.EnsureConfigDir(); err != nil {
		return log.New(io.Discard, "", 0)
	}
	f, err := os.OpenFile(filepath.Join(dir, "berg.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(f, "", log.LstdFlags)
}
