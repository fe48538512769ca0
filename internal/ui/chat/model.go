// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tradeberg/berg-tui/internal/api"
	"github.com/tradeberg/berg-tui/internal/chart"
	"github.com/tradeberg/berg-tui/internal/chat"
	"github.com/tradeberg/berg-tui/internal/history"
	"github.com/tradeberg/berg-tui/internal/render"
	"github.com/tradeberg/berg-tui/internal/storage"
	"github.com/tradeberg/berg-tui/internal/ui/styles"
)

// inputHeight is the fixed height of the prompt area in rows.
const inputHeight = 3

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen. It renders the
// conversation owned by the session and drains the session's event feed.
type Model struct {
	session *chat.Session
	client  *api.Client
	theme   *styles.Theme
	keys    KeyMap

	interp   *chart.Interpreter
	renderer *render.Renderer

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Optional persistence, wired by the caller.
	Store   *storage.ConversationStore
	Archive *history.Archive
	Logger  *log.Logger

	width  int
	height int
	ready  bool

	online   bool
	errText  string
	showHelp bool
	quitting bool
}

// New creates the chat screen. The interpreter may be nil, in which case
// the default chart vocabulary is used.
func New(session *chat.Session, client *api.Client, theme *styles.Theme, interp *chart.Interpreter) (Model, error) {
	if theme == nil {
		theme = styles.NewTheme("berg")
	}
	if interp == nil {
		interp = chart.NewInterpreter(nil)
	}

	renderer, err := render.NewRenderer(80, interp)
	if err != nil {
		return Model{}, err
	}

	input := textarea.New()
	input.Placeholder = "Ask about any market..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.ShowLineNumbers = false
	input.SetHeight(1)
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		session:  session,
		client:   client,
		theme:    theme,
		keys:     DefaultKeyMap(),
		interp:   interp,
		renderer: renderer,
		input:    input,
		spinner:  sp,
		online:   true,
	}, nil
}

// Init starts the event feed reader, the health probe and the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForEvent(m.session.Events()),
		checkBackendCmd(m.client),
	)
}

// Session exposes the underlying session, mainly for tests.
func (m Model) Session() *chat.Session {
	return m.session
}
