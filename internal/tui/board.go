package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/drag"
	"github.com/h0rv/kanban/internal/reorder"
	"github.com/h0rv/kanban/internal/store"
	"github.com/muesli/reflow/truncate"
)

const (
	pageJumpSize  = 10 // Cards skipped by ctrl+d/ctrl+u
	toastDuration = 4 * time.Second
)

type moveMode int

const (
	moveNone moveMode = iota
	moveCard
	moveList
)

type promptKind int

const (
	promptNone promptKind = iota
	promptCard
	promptList
)

// BoardModel represents the main kanban board view
type BoardModel struct {
	// Dependencies
	store  *store.Store
	engine *reorder.Engine
	client Client
	ctx    context.Context

	// UI components
	keymap  KeyMap
	help    HelpModel
	spinner spinner.Model
	input   textinput.Model

	// Shared across model copies so pointer gestures survive Update
	tracker *drag.Tracker
	geo     *geometry

	// Board state
	state          domain.BoardState
	selectedColumn int
	columnOffset   int
	selectedCard   map[string]int // List ID -> selected card index
	scrollOffset   map[string]int // List ID -> scroll offset

	// Keyboard move mode
	mode         moveMode
	moving       drag.Handle
	targetColumn int
	targetIndex  int

	// View state
	width    int
	height   int
	showHelp bool
	prompt   promptKind
	loading  bool
	saving   int // Operations awaiting persistence
	toast    string
	toastID  int
}

// NewBoardModel creates a board model over the store. threshold is the
// mouse drag activation distance in cells.
func NewBoardModel(s *store.Store, engine *reorder.Engine, client Client, ctx context.Context, threshold int) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.CharLimit = 200
	ti.PromptStyle = PromptStyle

	geo := &geometry{}
	tracker := drag.NewTracker(geo, drag.BoardResolver{State: s.Snapshot},
		drag.WithThreshold(threshold),
		drag.WithBusy(engine.InFlight),
	)

	m := BoardModel{
		store:        s,
		engine:       engine,
		client:       client,
		ctx:          ctx,
		keymap:       DefaultKeyMap(),
		help:         NewHelpModel(DefaultKeyMap()),
		spinner:      sp,
		input:        ti,
		tracker:      tracker,
		geo:          geo,
		selectedCard: make(map[string]int),
		scrollOffset: make(map[string]int),
	}
	m.rebuild()
	return m
}

// Init starts the spinner and asks for the terminal size.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.adjustColumnScroll()
		m.refreshGeometry()
		return m, nil

	case storeChangedMsg:
		m.rebuild()
		return m, nil

	case persistDoneMsg:
		return m.completeMove(msg)

	case boardReloadMsg:
		m.loading = false
		if msg.err != nil {
			return m.showToast(fmt.Sprintf("Reload failed: %v", msg.err))
		}
		m.store.Load(msg.state)
		m.engine.Invalidate()
		m.rebuild()
		return m, nil

	case cardCreatedMsg:
		if msg.err != nil {
			return m.showToast(fmt.Sprintf("Add card failed: %v", msg.err))
		}
		if err := m.store.AddCard(msg.card); err != nil {
			return m.showToast(fmt.Sprintf("Add card failed: %v", err))
		}
		m.engine.TouchLists(msg.card.ListID)
		_ = m.store.SelectCard(msg.card.ID)
		m.rebuild()
		return m, nil

	case listCreatedMsg:
		if msg.err != nil {
			return m.showToast(fmt.Sprintf("Add list failed: %v", msg.err))
		}
		if err := m.store.AddList(msg.list); err != nil {
			return m.showToast(fmt.Sprintf("Add list failed: %v", err))
		}
		m.engine.TouchBoard(m.state.Board.ID)
		m.rebuild()
		m.selectedColumn = len(m.state.Lists) - 1
		m.adjustColumnScroll()
		m.syncSelection()
		return m, nil

	case cardDeletedMsg:
		if msg.err != nil {
			return m.showToast(fmt.Sprintf("Delete failed: %v", msg.err))
		}
		if card, err := m.store.Card(msg.cardID); err == nil {
			_ = m.store.DeleteCard(msg.cardID)
			m.engine.TouchLists(card.ListID)
		}
		m.rebuild()
		return m, nil

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Quit, m.keymap.Cancel) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.prompt != promptNone {
		return m.handlePrompt(msg)
	}

	// Escape aborts a mouse drag in progress
	if key.Matches(msg, m.keymap.Cancel) {
		if end, ok := m.tracker.Cancel(); ok {
			return m.handleDragEnd(end)
		}
	}

	if m.mode != moveNone {
		return m.handleMoveMode(msg)
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Left):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.adjustColumnScroll()
			m.syncSelection()
		}
	case key.Matches(msg, m.keymap.Right):
		if m.selectedColumn < len(m.state.Lists)-1 {
			m.selectedColumn++
			m.adjustColumnScroll()
			m.syncSelection()
		}
	case key.Matches(msg, m.keymap.Down):
		m.moveCardSelection(1)
	case key.Matches(msg, m.keymap.Up):
		m.moveCardSelection(-1)
	case msg.String() == "g":
		m.jumpToCard(0)
	case msg.String() == "G":
		m.jumpToCard(-1)
	case msg.String() == "ctrl+d":
		m.moveCardSelection(pageJumpSize)
	case msg.String() == "ctrl+u":
		m.moveCardSelection(-pageJumpSize)
	case key.Matches(msg, m.keymap.MoveCard):
		return m.pickUpCard()
	case key.Matches(msg, m.keymap.MoveList):
		return m.pickUpList()
	case key.Matches(msg, m.keymap.Drop):
		if card, ok := m.selectedCardValue(); ok {
			return m, func() tea.Msg { return openDetailMsg{cardID: card.ID} }
		}
	case key.Matches(msg, m.keymap.AddCard):
		if list, ok := m.currentList(); ok {
			return m.openPrompt(promptCard, "New card in "+list.Title+": ")
		}
	case key.Matches(msg, m.keymap.AddList):
		return m.openPrompt(promptList, "New list: ")
	case key.Matches(msg, m.keymap.DeleteCard):
		return m.deleteSelectedCard()
	case key.Matches(msg, m.keymap.Refresh):
		m.loading = true
		return m, m.reload()
	}

	m.refreshGeometry()
	return m, nil
}

// pickUpCard enters card move mode with the drop marker on the card's slot.
func (m BoardModel) pickUpCard() (tea.Model, tea.Cmd) {
	card, ok := m.selectedCardValue()
	if !ok {
		return m, nil
	}
	if m.engine.InFlight(card.ID) {
		return m.showToast("Card is still saving")
	}
	m.mode = moveCard
	m.moving = drag.Handle{Kind: drag.KindCard, ID: card.ID, Container: card.ListID}
	m.targetColumn = m.selectedColumn
	m.targetIndex = card.Position
	return m, nil
}

// pickUpList enters list move mode with the marker on the list's slot.
func (m BoardModel) pickUpList() (tea.Model, tea.Cmd) {
	list, ok := m.currentList()
	if !ok {
		return m, nil
	}
	if m.engine.InFlight(list.ID) {
		return m.showToast("List is still saving")
	}
	m.mode = moveList
	m.moving = drag.Handle{Kind: drag.KindList, ID: list.ID, Container: m.state.Board.ID}
	m.targetColumn = m.selectedColumn
	return m, nil
}

// handleMoveMode moves the drop marker. Enter drops, escape cancels.
func (m BoardModel) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel, m.keymap.Quit):
		return m.handleDragEnd(drag.End{Active: m.moving})
	case key.Matches(msg, m.keymap.Drop):
		return m.handleDragEnd(m.keyboardDrop())
	case key.Matches(msg, m.keymap.Left):
		if m.targetColumn > 0 {
			m.targetColumn--
		}
	case key.Matches(msg, m.keymap.Right):
		if m.targetColumn < len(m.state.Lists)-1 {
			m.targetColumn++
		}
	case key.Matches(msg, m.keymap.Up):
		if m.mode == moveCard && m.targetIndex > 0 {
			m.targetIndex--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.mode == moveCard {
			m.targetIndex++
		}
	}
	if m.mode == moveCard {
		m.targetIndex = min(m.targetIndex, m.targetRoom())
	}
	m.selectedColumn = m.targetColumn
	m.adjustColumnScroll()
	return m, nil
}

// targetRoom is the highest index the moving card can take in the target list.
func (m BoardModel) targetRoom() int {
	if m.targetColumn >= len(m.state.Lists) {
		return 0
	}
	target := m.state.Lists[m.targetColumn]
	if target.ID == m.moving.Container {
		return max(len(target.Cards)-1, 0)
	}
	return len(target.Cards)
}

// keyboardDrop builds the drag-end event for the current drop marker.
func (m BoardModel) keyboardDrop() drag.End {
	end := drag.End{Active: m.moving}
	if m.targetColumn >= len(m.state.Lists) {
		return end
	}
	target := m.state.Lists[m.targetColumn]
	end.Over = &drag.Target{Kind: drag.KindList, ID: target.ID}

	payload := drag.Payload{
		Kind:            m.moving.Kind,
		ID:              m.moving.ID,
		SourceContainer: m.moving.Container,
	}
	switch m.moving.Kind {
	case drag.KindCard:
		payload.TargetContainer = target.ID
		payload.TargetIndex = m.targetIndex
	case drag.KindList:
		payload.TargetContainer = m.state.Board.ID
		payload.TargetIndex = m.targetColumn
	}
	end.Payload = &payload
	return end
}

// handleDragEnd applies a drop through the reorder engine and schedules
// its persistence. Drops outside a target and no-op drops do nothing.
func (m BoardModel) handleDragEnd(end drag.End) (tea.Model, tea.Cmd) {
	m.mode = moveNone
	m.moving = drag.Handle{}

	if end.Over == nil || end.Payload == nil {
		m.rebuild()
		return m, nil
	}

	op, err := m.engine.Begin(*end.Payload)
	if err != nil {
		m.rebuild()
		return m.showToast(fmt.Sprintf("Move refused: %v", err))
	}
	if op == nil {
		m.rebuild()
		return m, nil
	}

	m.saving++
	switch end.Payload.Kind {
	case drag.KindCard:
		_ = m.store.SelectCard(end.Payload.ID)
		m.rebuild()
	case drag.KindList:
		m.rebuild()
		m.selectedColumn = max(m.state.ListIndex(end.Payload.ID), 0)
		m.adjustColumnScroll()
		m.syncSelection()
	}
	return m, m.persist(op)
}

// persist sends the operation to the server off the update loop.
func (m BoardModel) persist(op *reorder.Operation) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return persistDoneMsg{op: op, err: engine.Persist(ctx, op)}
	}
}

// completeMove records a persistence result. Rollbacks raise a toast; a
// failure that could not be rolled back reloads the board.
func (m BoardModel) completeMove(msg persistDoneMsg) (tea.Model, tea.Cmd) {
	if m.saving > 0 {
		m.saving--
	}
	state, err := m.engine.Complete(msg.op, msg.err)
	m.rebuild()

	switch {
	case errors.Is(err, reorder.ErrStale):
		model, toast := m.showToast(fmt.Sprintf("Save failed, reloading board: %v", msg.err))
		return model, tea.Batch(toast, m.reload())
	case state == reorder.StateRolledBack:
		return m.showToast(fmt.Sprintf("Move failed, reverted: %v", msg.err))
	}
	return m, nil
}

// handleMouse feeds pointer events to the drag tracker.
func (m BoardModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != moveNone || m.prompt != promptNone || m.showHelp {
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.tracker.PointerDown(msg.X, msg.Y)
		case tea.MouseButtonWheelUp:
			m.moveCardSelection(-1)
		case tea.MouseButtonWheelDown:
			m.moveCardSelection(1)
		}
	case tea.MouseActionMotion:
		m.tracker.PointerMove(msg.X, msg.Y)
	case tea.MouseActionRelease:
		release := m.tracker.PointerUp(msg.X, msg.Y)
		switch {
		case release.End != nil:
			return m.handleDragEnd(*release.End)
		case release.Click != nil:
			m.selectHandle(*release.Click)
		}
	}
	return m, nil
}

// selectHandle selects the clicked list or card.
func (m *BoardModel) selectHandle(h drag.Handle) {
	switch h.Kind {
	case drag.KindList:
		if idx := m.state.ListIndex(h.ID); idx >= 0 {
			m.selectedColumn = idx
			m.syncSelection()
		}
	case drag.KindCard:
		_ = m.store.SelectCard(h.ID)
		m.rebuild()
	}
}

// handlePrompt routes keys to the title input.
func (m BoardModel) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		kind := m.prompt
		m.closePrompt()
		if title == "" {
			return m, nil
		}
		if kind == promptCard {
			return m, m.createCard(title)
		}
		return m, m.createList(title)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m BoardModel) openPrompt(kind promptKind, prompt string) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.input.Prompt = prompt
	m.input.SetValue("")
	m.input.Focus()
	m.refreshGeometry()
	return m, textinput.Blink
}

func (m *BoardModel) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
	m.refreshGeometry()
}

func (m BoardModel) createCard(title string) tea.Cmd {
	list, ok := m.currentList()
	if !ok {
		return nil
	}
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		card, err := client.CreateCard(ctx, domain.CreateCardRequest{ListID: list.ID, Title: title})
		return cardCreatedMsg{card: card, err: err}
	}
}

func (m BoardModel) createList(title string) tea.Cmd {
	client, ctx, boardID := m.client, m.ctx, m.state.Board.ID
	return func() tea.Msg {
		list, err := client.CreateList(ctx, boardID, title)
		return listCreatedMsg{list: list, err: err}
	}
}

func (m BoardModel) deleteSelectedCard() (tea.Model, tea.Cmd) {
	card, ok := m.selectedCardValue()
	if !ok {
		return m, nil
	}
	if m.engine.InFlight(card.ID) {
		return m.showToast("Card is still saving")
	}
	client, ctx := m.client, m.ctx
	return m, func() tea.Msg {
		return cardDeletedMsg{cardID: card.ID, err: client.DeleteCard(ctx, card.ID)}
	}
}

// reload fetches the board from the server.
func (m BoardModel) reload() tea.Cmd {
	client, ctx, boardID := m.client, m.ctx, m.state.Board.ID
	return func() tea.Msg {
		state, err := client.GetBoard(ctx, boardID)
		return boardReloadMsg{state: state, err: err}
	}
}

// showToast displays a non-modal message that clears itself.
func (m BoardModel) showToast(text string) (tea.Model, tea.Cmd) {
	m.toastID++
	m.toast = text
	id := m.toastID
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{id: id} })
}

// View renders the board to fill the terminal
func (m BoardModel) View() string {
	width, _ := m.size()

	sections := []string{m.renderHeader(width), m.renderSecondHeader(width)}

	switch {
	case m.prompt != promptNone:
		sections = append(sections, m.input.View())
	case m.mode == moveCard:
		sections = append(sections, moveModeStyle.Render("MOVE CARD")+" h/l list, j/k position, enter drop, esc cancel")
	case m.mode == moveList:
		sections = append(sections, moveModeStyle.Render("MOVE LIST")+" h/l position, enter drop, esc cancel")
	}

	boardHeight := m.boardHeight()

	var main string
	switch {
	case m.showHelp:
		lines := strings.Split(m.help.View(width), "\n")
		if len(lines) > boardHeight {
			lines = lines[:boardHeight]
		}
		main = strings.Join(lines, "\n")
	case len(m.state.Lists) == 0:
		main = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center,
			"No lists yet. Press 'A' to add one.")
	default:
		main = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, main)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BoardModel) size() (int, int) {
	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}
	return width, height
}

// boardTop is the first terminal line of the columns.
func (m BoardModel) boardTop() int {
	if m.prompt != promptNone || m.mode != moveNone {
		return headerLines + 1
	}
	return headerLines
}

func (m BoardModel) boardHeight() int {
	_, height := m.size()
	h := height - m.boardTop()
	if h < 5 {
		h = 5
	}
	return h
}

// renderHeader renders the board title on the left and status on the right
func (m BoardModel) renderHeader(width int) string {
	title := m.state.Board.Title

	var status []string
	if m.loading {
		status = append(status, m.spinner.View()+"loading")
	}
	if m.saving > 0 {
		status = append(status, m.spinner.View()+fmt.Sprintf("saving %d", m.saving))
	}
	if m.tracker.Dragging() {
		if active, ok := m.tracker.Active(); ok {
			status = append(status, "dragging "+string(active.Kind))
		}
	}
	total := 0
	for _, l := range m.state.Lists {
		total += len(l.Cards)
	}
	status = append(status, fmt.Sprintf("%d lists, %d cards", len(m.state.Lists), total), "[?]help")
	right := strings.Join(status, " | ")

	padding := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

// renderSecondHeader renders navigation hints and the toast or position
func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:list j/k:card m/M:move a/A:add d:del enter:view"

	right := ""
	if m.toast != "" {
		right = errorStyle.Render(m.toast)
	} else if len(m.state.Lists) > 0 {
		list := m.state.Lists[m.selectedColumn]
		right = fmt.Sprintf("list %d/%d", m.selectedColumn+1, len(m.state.Lists))
		if len(list.Cards) > 0 {
			right += fmt.Sprintf(" | card %d/%d", m.selectedCard[list.ID]+1, len(list.Cards))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderBoard renders the visible columns with carousel indicators at the
// edges when columns overflow.
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	l := computeLayout(len(m.state.Lists), m.columnOffset, totalWidth, totalHeight)
	if l.endCol == 0 {
		return ""
	}

	indicator := func(arrow string) string {
		return lipgloss.NewStyle().
			Width(indicatorWidth).
			Height(l.contentHeight+2).
			Foreground(lipgloss.Color("205")).
			Align(lipgloss.Center, lipgloss.Center).
			Render(arrow)
	}

	views := make([]string, 0, l.endCol-l.startCol+2)
	if l.leftIndicator {
		views = append(views, indicator("◀"))
	}
	for i := l.startCol; i < l.endCol; i++ {
		views = append(views, m.renderColumn(i, l))
	}
	if l.rightIndicator {
		views = append(views, indicator("▶"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// row is one rendered line inside a column.
type row struct {
	text  string
	style lipgloss.Style
}

// columnRows returns the card lines of list idx, with the drop marker
// inserted while a card is being moved by keyboard.
func (m BoardModel) columnRows(idx int, selected bool, width int) []row {
	list := m.state.Lists[idx]
	rows := make([]row, 0, len(list.Cards)+1)

	if m.mode != moveCard {
		for i, card := range list.Cards {
			text := formatCardText(card, width-2)
			if selected && i == m.selectedCard[list.ID] {
				rows = append(rows, row{"> " + text, selectedCardStyle})
			} else {
				rows = append(rows, row{"  " + text, cardStyle})
			}
		}
		return rows
	}

	var moving domain.Card
	for _, l := range m.state.Lists {
		for _, c := range l.Cards {
			if c.ID == m.moving.ID {
				moving = c
			}
		}
	}
	marker := row{"▸ " + formatCardText(moving, width-2), dropMarkerStyle}

	slot := 0
	for _, card := range list.Cards {
		if card.ID == m.moving.ID {
			if idx != m.targetColumn {
				rows = append(rows, row{"  " + formatCardText(card, width-2), draggedCardStyle})
			}
			continue
		}
		if idx == m.targetColumn && slot == m.targetIndex {
			rows = append(rows, marker)
		}
		rows = append(rows, row{"  " + formatCardText(card, width-2), cardStyle})
		slot++
	}
	if idx == m.targetColumn && m.targetIndex >= slot {
		rows = append(rows, marker)
	}
	return rows
}

// renderColumn renders a single list with a fixed height.
func (m BoardModel) renderColumn(idx int, l boardLayout) string {
	list := m.state.Lists[idx]
	selected := idx == m.selectedColumn

	header := fmt.Sprintf("[%d] %s (%d)", idx+1, list.Title, len(list.Cards))
	if m.mode == moveList && list.ID == m.moving.ID {
		header = "⇄ " + header
	}
	header = truncate.StringWithTail(header, uint(l.innerWidth), "…")

	rows := m.columnRows(idx, selected, l.innerWidth)
	offset := m.scrollOffset[list.ID]
	if m.mode == moveCard && idx == m.targetColumn {
		offset = windowAround(m.targetIndex, offset, l.cardSlots()-2)
	}
	if offset > len(rows) {
		offset = 0
	}
	end, up, down := cardWindow(len(rows), offset, l.cardSlots())

	lines := []string{columnHeaderStyle.Render(header)}
	if up {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", offset)))
	}
	for _, r := range rows[offset:end] {
		lines = append(lines, r.style.Render(r.text))
	}
	if down {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", len(rows)-end)))
	}
	if len(rows) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	switch {
	case m.mode == moveList && idx == m.targetColumn:
		borderColor = lipgloss.Color("228")
	case selected:
		borderColor = lipgloss.Color("205")
	}

	// Height is the content area; the border adds 2 more lines
	return lipgloss.NewStyle().
		Width(l.colWidth - 2).
		Height(l.contentHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Render(strings.Join(lines, "\n"))
}

// windowAround returns a scroll offset that keeps row i within visible rows.
func windowAround(i, offset, visible int) int {
	if visible < 1 {
		visible = 1
	}
	if i < offset {
		return i
	}
	if i >= offset+visible {
		return i - visible + 1
	}
	return offset
}

// formatCardText formats a card for display with max width, right-aligning
// checklist progress or the due date.
func formatCardText(card domain.Card, maxWidth int) string {
	suffix := cardSuffix(card)
	if suffix == "" {
		return truncate.StringWithTail(card.Title, uint(maxWidth), "…")
	}

	available := maxWidth - lipgloss.Width(suffix) - 1
	if available < 5 {
		available = 5
	}
	title := truncate.StringWithTail(card.Title, uint(available), "…")

	padding := maxWidth - lipgloss.Width(title) - lipgloss.Width(suffix)
	if padding < 1 {
		padding = 1
	}
	return title + strings.Repeat(" ", padding) + dimStyle.Render(suffix)
}

func cardSuffix(card domain.Card) string {
	done, total := checklistProgress(card)
	if total > 0 {
		return fmt.Sprintf("[%d/%d]", done, total)
	}
	if len(card.DueDate) >= 10 {
		return card.DueDate[5:10] // MM-DD of an ISO date
	}
	return ""
}

func checklistProgress(card domain.Card) (done, total int) {
	for _, cl := range card.Checklists {
		for _, item := range cl.Items {
			total++
			if item.Completed {
				done++
			}
		}
	}
	return done, total
}

// rebuild refreshes the board from the store and restores the selection.
func (m *BoardModel) rebuild() {
	m.state = m.store.Snapshot()

	if m.selectedColumn >= len(m.state.Lists) {
		m.selectedColumn = max(len(m.state.Lists)-1, 0)
	}
	if m.mode != moveNone {
		// The cursor follows the drop marker
		if m.targetColumn >= len(m.state.Lists) {
			m.targetColumn = max(len(m.state.Lists)-1, 0)
		}
		m.selectedColumn = m.targetColumn
	} else if li, ci, ok := m.state.FindCard(m.state.SelectedCardID); ok {
		m.selectedColumn = li
		m.selectedCard[m.state.Lists[li].ID] = ci
	}
	for _, l := range m.state.Lists {
		if m.selectedCard[l.ID] >= len(l.Cards) {
			m.selectedCard[l.ID] = max(len(l.Cards)-1, 0)
		}
	}

	m.adjustColumnScroll()
	if list, ok := m.currentList(); ok {
		m.adjustScroll(list.ID)
	}
	m.refreshGeometry()
}

// refreshGeometry recomputes the hit-test rectangles for the current layout.
func (m *BoardModel) refreshGeometry() {
	width, _ := m.size()
	l := computeLayout(len(m.state.Lists), m.columnOffset, width, m.boardHeight())
	top := m.boardTop()

	cols := make([]columnGeometry, 0, l.endCol-l.startCol)
	for i := l.startCol; i < l.endCol; i++ {
		list := m.state.Lists[i]
		offset := m.scrollOffset[list.ID]
		if offset > len(list.Cards) {
			offset = 0
		}
		end, up, _ := cardWindow(len(list.Cards), offset, l.cardSlots())

		ids := make([]string, 0, end-offset)
		for _, c := range list.Cards[offset:end] {
			ids = append(ids, c.ID)
		}

		x := l.columnX(i)
		col := columnGeometry{
			listID:  list.ID,
			x0:      x,
			x1:      x + l.colWidth,
			y0:      top,
			y1:      top + l.contentHeight + 2,
			headerY: top + 1,
			cardY:   top + 2,
			cardIDs: ids,
		}
		if up {
			col.cardY++
		}
		cols = append(cols, col)
	}
	m.geo.columns = cols
}

// syncSelection records the card under the cursor as the store selection.
func (m *BoardModel) syncSelection() {
	cardID := ""
	if card, ok := m.selectedCardValue(); ok {
		cardID = card.ID
	}
	_ = m.store.SelectCard(cardID)
	m.rebuild()
}

// moveCardSelection moves the card selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	list, ok := m.currentList()
	if !ok || len(list.Cards) == 0 {
		return
	}
	idx := m.selectedCard[list.ID] + delta
	idx = max(0, min(idx, len(list.Cards)-1))
	m.selectedCard[list.ID] = idx
	m.adjustScroll(list.ID)
	m.syncSelection()
}

// jumpToCard jumps to a specific card index. Use -1 to jump to last card.
func (m *BoardModel) jumpToCard(idx int) {
	list, ok := m.currentList()
	if !ok || len(list.Cards) == 0 {
		return
	}
	if idx < 0 || idx >= len(list.Cards) {
		idx = len(list.Cards) - 1
	}
	m.selectedCard[list.ID] = idx
	m.adjustScroll(list.ID)
	m.syncSelection()
}

// adjustScroll ensures the selected card is visible
func (m *BoardModel) adjustScroll(listID string) {
	width, _ := m.size()
	l := computeLayout(len(m.state.Lists), m.columnOffset, width, m.boardHeight())
	visible := l.cardSlots() - 2 // Room for both scroll indicators
	m.scrollOffset[listID] = windowAround(m.selectedCard[listID], m.scrollOffset[listID], visible)
}

// adjustColumnScroll ensures the selected column is visible (horizontal carousel)
func (m *BoardModel) adjustColumnScroll() {
	if len(m.state.Lists) == 0 {
		m.columnOffset = 0
		return
	}
	width, _ := m.size()
	visibleCols := max(width/minColumnWidth, 1)
	visibleCols = min(visibleCols, len(m.state.Lists))

	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visibleCols {
		m.columnOffset = m.selectedColumn - visibleCols + 1
	}
}

// currentList returns the list under the cursor.
func (m BoardModel) currentList() (domain.List, bool) {
	if m.selectedColumn >= len(m.state.Lists) {
		return domain.List{}, false
	}
	return m.state.Lists[m.selectedColumn], true
}

// selectedCardValue returns the card under the cursor.
func (m BoardModel) selectedCardValue() (domain.Card, bool) {
	list, ok := m.currentList()
	if !ok || len(list.Cards) == 0 {
		return domain.Card{}, false
	}
	idx := m.selectedCard[list.ID]
	if idx >= len(list.Cards) {
		idx = 0
	}
	return list.Cards[idx], true
}
