// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface of berg: one-shot
// questions, a line-mode REPL, history search and chart export.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/config"
)

// Version information, synced from main at startup.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMAND ROUTING
// =============================================================================

// Command identifies a top-level CLI command.
type Command string

const (
	CmdTUI     Command = "tui"
	CmdAsk     Command = "ask"
	CmdChat    Command = "chat"
	CmdHistory Command = "history"
	CmdExport  Command = "export"
	CmdVersion Command = "version"
	CmdHelp    Command = "help"
)

// Parse splits os.Args into a command and its argument parser. No arguments
// or an unknown first word routes to the TUI.
func Parse() (Command, *ArgParser) {
	args := os.Args[1:]
	if len(args) == 0 {
		return CmdTUI, NewArgParser(nil)
	}

	switch args[0] {
	case "ask":
		return CmdAsk, NewArgParser(args[1:])
	case "chat":
		return CmdChat, NewArgParser(args[1:])
	case "history":
		return CmdHistory, NewArgParser(args[1:])
	case "export":
		return CmdExport, NewArgParser(args[1:])
	case "version", "--version", "-v":
		return CmdVersion, NewArgParser(args[1:])
	case "help", "--help", "-h":
		return CmdHelp, NewArgParser(args[1:])
	default:
		return CmdTUI, NewArgParser(args)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the user config, falling back to defaults on error so a
// broken config file never locks the user out of the client.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v (using defaults)\n", warnStyle.Render("[config]"), err)
		return config.Default()
	}
	return cfg
}

// newBackendClient builds the API client from config.
func newBackendClient(cfg *config.Config) *api.Client {
	return api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
	})
}

// newInterpreter builds the chart interpreter with any extra fence tags
// from config added to the default vocabulary.
func newInterpreter(cfg *config.Config) *chart.Interpreter {
	tags := chart.DefaultTags()
	for _, extra := range cfg.Chart.ExtraTags {
		if extra != "" {
			tags[extra] = chart.HintAuto
		}
	}
	return chart.NewInterpreter(tags)
}

// =============================================================================
// VERSION AND HELP
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(args *ArgParser) {
	if args.BoolFlag("json") {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"built\":%q}\n", Version, GitCommit, BuildDate)
		return
	}
	fmt.Printf("berg %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// HandleHelp prints top-level usage.
func HandleHelp() {
	fmt.Println(headerStyle.Render("berg - TradeBerg terminal client"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  berg                      Start the TUI (default)")
	fmt.Println("  berg ask <question>       One-shot question, answer to stdout")
	fmt.Println("  berg chat                 Line-mode REPL for dumb terminals")
	fmt.Println("  berg history [query]      Search or list archived chats")
	fmt.Println("  berg export <chat-id>     Export answer charts as SVG files")
	fmt.Println("  berg version              Show version information")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  ask:     --plain (no markdown rendering), --no-sources")
	fmt.Println("  history: --limit N, --chats (list chats instead of searching),")
	fmt.Println("           --prune-days N and/or --keep N (trim the archive)")
	fmt.Println("  export:  --out DIR, --width N")
}
