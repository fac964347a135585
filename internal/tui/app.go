package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/drag"
	"github.com/h0rv/kanban/internal/reorder"
	"github.com/h0rv/kanban/internal/store"
	"github.com/sirupsen/logrus"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenBoardPicker
	ScreenBoard
	ScreenDetail
)

// Options configures the editor.
type Options struct {
	BoardID       string // Open this board and skip the picker
	DragThreshold int    // Mouse drag activation distance in cells
	Logger        logrus.FieldLogger
}

// AppModel is the root Bubble Tea model that manages screen transitions.
// It orchestrates the flow from board selection -> board view -> card detail.
type AppModel struct {
	// Dependencies
	client  Client
	store   *store.Store
	engine  *reorder.Engine
	ctx     context.Context
	log     logrus.FieldLogger
	changes chan struct{}
	opts    Options

	// Current state
	currentScreen AppScreen
	err           error
	loadingMsg    string
	width, height int

	picker BoardPickerModel
	board  BoardModel
	detail DetailModel
}

// NewAppModel creates the app model. The store and reorder engine are owned
// by the model and torn down by Close.
func NewAppModel(ctx context.Context, client Client, opts Options) *AppModel {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = drag.DefaultThreshold
	}

	s := store.New()
	changes := make(chan struct{}, 1)
	s.Subscribe(func(domain.BoardState) {
		// Coalesce: one pending signal is enough to trigger a rebuild
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return &AppModel{
		client:        client,
		store:         s,
		engine:        reorder.New(s, client, reorder.WithLogger(opts.Logger)),
		ctx:           ctx,
		log:           opts.Logger,
		changes:       changes,
		opts:          opts,
		currentScreen: ScreenLoading,
		loadingMsg:    "Connecting to the board server...",
	}
}

// Close releases the store and its subscriptions.
func (m *AppModel) Close() {
	m.store.Close()
}

// Init initializes the app model.
func (m *AppModel) Init() tea.Cmd {
	if m.opts.BoardID != "" {
		m.loadingMsg = "Loading board..."
		return tea.Batch(m.loadBoard(m.opts.BoardID), waitForChange(m.changes))
	}
	return tea.Batch(m.fetchBoards(), waitForChange(m.changes))
}

// Update handles messages and transitions between screens.
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && (m.currentScreen == ScreenLoading || m.err != nil) {
			return m, tea.Quit
		}

	case ErrorMsg:
		m.log.WithError(msg.Err).Error("editor error")
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case boardsLoadedMsg:
		m.currentScreen = ScreenBoardPicker
		m.picker = NewBoardPickerModel(msg.boards)
		return m, m.picker.Init()

	case BoardSelectedMsg:
		m.currentScreen = ScreenLoading
		m.loadingMsg = fmt.Sprintf("Loading %s...", msg.Board.Title)
		return m, m.loadBoard(msg.Board.ID)

	case boardLoadedMsg:
		m.store.Load(msg.state)
		m.log.WithField("board", msg.state.Board.ID).Info("board opened")
		m.currentScreen = ScreenBoard
		m.board = NewBoardModel(m.store, m.engine, m.client, m.ctx, m.opts.DragThreshold)
		return m, m.board.Init()

	case storeChangedMsg:
		return m, tea.Batch(m.refresh(), waitForChange(m.changes))

	case persistDoneMsg, boardReloadMsg, cardCreatedMsg, listCreatedMsg, cardDeletedMsg, clearToastMsg:
		// Board results arrive even while the detail view is open
		return m, m.updateBoard(msg)

	case cardUpdatedMsg:
		if msg.err == nil {
			if err := m.store.ReplaceCard(msg.card); err != nil {
				m.log.WithError(err).WithField("card", msg.card.ID).Warn("updated card not on board")
			} else if card, err := m.store.Card(msg.card.ID); err == nil {
				m.engine.TouchLists(card.ListID)
			}
		}

	case openDetailMsg:
		card, err := m.store.Card(msg.cardID)
		if err != nil {
			return m, nil
		}
		m.currentScreen = ScreenDetail
		m.detail = NewDetailModel(card, m.listTitle(card.ListID), m.client, m.ctx)
		return m, m.detail.Init()

	case closeDetailMsg:
		m.currentScreen = ScreenBoard
		return m, tea.WindowSize()
	}

	var cmd tea.Cmd
	switch m.currentScreen {
	case ScreenBoardPicker:
		var model tea.Model
		model, cmd = m.picker.Update(msg)
		m.picker = model.(BoardPickerModel)
	case ScreenBoard:
		cmd = m.updateBoard(msg)
	case ScreenDetail:
		var model tea.Model
		model, cmd = m.detail.Update(msg)
		m.detail = model.(DetailModel)
	}
	return m, cmd
}

// View renders the current screen.
func (m *AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err))
	}

	switch m.currentScreen {
	case ScreenBoardPicker:
		return m.picker.View()
	case ScreenBoard:
		return m.board.View()
	case ScreenDetail:
		return m.detail.View()
	}
	return m.loadingMsg + "\n\nPress Ctrl+C to quit"
}

func (m *AppModel) updateBoard(msg tea.Msg) tea.Cmd {
	if m.currentScreen != ScreenBoard && m.currentScreen != ScreenDetail {
		return nil
	}
	model, cmd := m.board.Update(msg)
	m.board = model.(BoardModel)
	return cmd
}

// refresh brings the board and the open detail view up to date with the store.
func (m *AppModel) refresh() tea.Cmd {
	if m.currentScreen != ScreenBoard && m.currentScreen != ScreenDetail {
		return nil
	}
	cmd := m.updateBoard(storeChangedMsg{})

	if m.currentScreen == ScreenDetail {
		card, err := m.store.Card(m.detail.CardID())
		if err != nil {
			// Card deleted or removed by a reload
			m.currentScreen = ScreenBoard
			return tea.Batch(cmd, tea.WindowSize())
		}
		m.detail.SetCard(card, m.listTitle(card.ListID))
	}
	return cmd
}

func (m *AppModel) listTitle(listID string) string {
	if list, err := m.store.List(listID); err == nil {
		return list.Title
	}
	return ""
}

// fetchBoards creates a command to list the boards on the server.
func (m *AppModel) fetchBoards() tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		boards, err := client.ListBoards(ctx)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("failed to list boards: %w", err)}
		}
		if len(boards) == 0 {
			return ErrorMsg{Err: fmt.Errorf("no boards found; start the server with 'kanban serve --seed' for a demo board")}
		}
		return boardsLoadedMsg{boards: boards}
	}
}

// loadBoard creates a command to fetch one board with its lists and cards.
func (m *AppModel) loadBoard(boardID string) tea.Cmd {
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		state, err := client.GetBoard(ctx, boardID)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("failed to load board '%s': %w", boardID, err)}
		}
		return boardLoadedMsg{state: state}
	}
}
