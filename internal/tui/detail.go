package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/browser"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2 // Top + bottom border
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	commentAuthorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	commentTimeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	commentBodyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	scrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)
)

// CardUpdater saves card field changes.
type CardUpdater interface {
	UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error)
}

// DetailModel represents the card detail view with split-screen layout
type DetailModel struct {
	// Dependencies
	client  CardUpdater
	ctx     context.Context
	openURL func(string) error

	// Card data
	card      domain.Card
	listTitle string

	// UI components
	spinner  spinner.Model
	editor   textarea.Model
	viewport viewport.Model

	// State
	editMode    bool
	confirmExit bool // Show "unsaved changes" prompt
	saving      bool
	errorMsg    string
	successMsg  string

	// View dimensions
	width  int
	height int
}

// NewDetailModel creates a new detail view model
func NewDetailModel(card domain.Card, listTitle string, client CardUpdater, ctx context.Context) DetailModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Describe this card..."
	ta.CharLimit = 65535
	ta.SetHeight(8)
	ta.SetWidth(40) // Resized on WindowSizeMsg
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("228"))
	ta.BlurredStyle.Base = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))

	vp := viewport.New(40, 10) // Resized on WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	m := DetailModel{
		client:    client,
		ctx:       ctx,
		openURL:   browser.OpenURL,
		card:      card,
		listTitle: listTitle,
		spinner:   sp,
		editor:    ta,
		viewport:  vp,
	}
	m.updateViewportContent()
	return m
}

// Init initializes the detail model
func (m DetailModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.WindowSize())
}

// SetCard replaces the displayed card after a store change.
func (m *DetailModel) SetCard(card domain.Card, listTitle string) {
	m.card = card
	m.listTitle = listTitle
	m.updateViewportContent()
}

// CardID returns the ID of the displayed card.
func (m DetailModel) CardID() string {
	return m.card.ID
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case cardUpdatedMsg:
		m.saving = false
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Save failed: %v", msg.err)
			return m, nil
		}
		m.editMode = false
		m.editor.Blur()
		m.successMsg = "Description saved"
		m.card.Description = msg.card.Description
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if !m.editMode {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.editMode {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// resizeComponents calculates and sets component dimensions
func (m *DetailModel) resizeComponents() {
	leftWidth := m.leftWidth(m.width)
	rightWidth := m.width - leftWidth - 3 // Gap between panels
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - headerHeight - footerHeight - borderSize
	if contentHeight < 10 {
		contentHeight = 10
	}

	m.viewport.Width = rightWidth - borderSize - 2
	m.viewport.Height = contentHeight - borderSize - 1 // Panel title
	m.editor.SetWidth(rightWidth - borderSize - 4)
	m.updateViewportContent()
}

func (m DetailModel) leftWidth(width int) int {
	w := int(float64(width) * leftPanelRatio)
	return max(minLeftWidth, min(w, maxLeftWidth))
}

// handleKeyPress processes keyboard input
func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirmExit {
		switch msg.String() {
		case "y", "Y":
			m.confirmExit = false
			m.editMode = false
			m.editor.Blur()
			return m, nil
		case "n", "N", "esc":
			m.confirmExit = false
			return m, nil
		case "s", "S":
			m.confirmExit = false
			return m.save()
		}
		return m, nil
	}

	// Edit mode: the textarea gets every key except save and cancel
	if m.editMode {
		switch msg.String() {
		case "esc":
			if m.editor.Value() != m.card.Description {
				m.confirmExit = true
				return m, nil
			}
			m.editMode = false
			m.editor.Blur()
			return m, nil
		case "ctrl+s":
			return m.save()
		default:
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		if url := m.linkURL(); url != "" {
			if err := m.openURL(url); err != nil {
				m.errorMsg = fmt.Sprintf("Open failed: %v", err)
			}
		}
	case "e":
		m.editMode = true
		m.editor.SetValue(m.card.Description)
		m.editor.Focus()
		m.errorMsg = ""
		m.successMsg = ""
		return m, textarea.Blink
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}

	return m, nil
}

// save sends the edited description to the server.
func (m DetailModel) save() (tea.Model, tea.Cmd) {
	description := strings.TrimRight(m.editor.Value(), "\n ")
	m.saving = true
	m.errorMsg = ""
	client, ctx, cardID := m.client, m.ctx, m.card.ID
	return m, func() tea.Msg {
		card, err := client.UpdateCard(ctx, cardID, domain.CardPatch{Description: &description})
		return cardUpdatedMsg{card: card, err: err}
	}
}

// linkURL returns the first attachment URL, or the cover image.
func (m DetailModel) linkURL() string {
	for _, a := range m.card.Attachments {
		if a.URL != "" {
			return a.URL
		}
	}
	return m.card.CoverImage
}

// View renders the split-screen detail view
func (m DetailModel) View() string {
	width, height := m.width, m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := m.leftWidth(width)
	rightWidth := width - leftWidth - 1 // 1 char gap

	contentHeight := height - headerHeight - footerHeight
	if contentHeight < 10 {
		contentHeight = 10
	}

	header := m.renderHeader()

	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth - borderSize))

	rightBorder := focusedPanelBorderStyle
	if m.editMode {
		rightBorder = panelBorderStyle
	}
	rightPanel := rightBorder.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderRightPanel())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)
	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderFooter(width))
}

// renderHeader renders the top help bar
func (m DetailModel) renderHeader() string {
	if m.confirmExit {
		return warningStyle.Render("Unsaved description! [Y]discard [N]cancel [S]save")
	}
	if m.editMode {
		return dimStyle.Render("[Ctrl+S]save [ESC]cancel") + "  " +
			commentAuthorStyle.Render("Editing description...")
	}

	parts := []string{"[q]back", "[e]edit", "[j/k]scroll", "[g/G]top/bottom"}
	if m.linkURL() != "" {
		parts = append(parts, "[o]open link")
	}
	return dimStyle.Render(strings.Join(parts, " "))
}

// renderFooter renders the bottom status bar
func (m DetailModel) renderFooter(width int) string {
	var left, right string

	switch {
	case m.saving:
		left = m.spinner.View() + " Saving..."
	case m.successMsg != "":
		left = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Render("✓ " + m.successMsg)
	case m.errorMsg != "":
		left = errorStyle.Render("✗ " + m.errorMsg)
	case m.editMode:
		left = fmt.Sprintf("%d chars", len(m.editor.Value()))
	}

	if !m.editMode && m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

// renderLeftPanel renders the card metadata panel
func (m DetailModel) renderLeftPanel(width int) string {
	var b strings.Builder

	b.WriteString(detailLabelStyle.Render(fmt.Sprintf("in %s, position %d", m.listTitle, m.card.Position+1)))
	b.WriteString("\n\n")
	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.card.Title, width-2)))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		if room := width - len(label) - 1; room > 3 && len(value) > room {
			value = value[:room-3] + "..."
		}
		b.WriteString(detailLabelStyle.Render(label + " "))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteString("\n")
	}

	field("Due:", formatDate(m.card.DueDate))

	labels := make([]string, 0, len(m.card.Labels))
	for _, l := range m.card.Labels {
		labels = append(labels, l.Name)
	}
	field("Labels:", strings.Join(labels, ", "))

	members := make([]string, 0, len(m.card.Members))
	for _, u := range m.card.Members {
		members = append(members, u.Name)
	}
	field("Members:", strings.Join(members, ", "))

	if done, total := checklistProgress(m.card); total > 0 {
		field("Checklist:", fmt.Sprintf("%d/%d done", done, total))
	}
	if n := len(m.card.Attachments); n > 0 {
		field("Attachments:", fmt.Sprintf("%d", n))
	}
	if n := len(m.card.Comments); n > 0 {
		field("Comments:", fmt.Sprintf("%d", n))
	}
	field("Cover:", m.card.CoverImage)

	return b.String()
}

// renderRightPanel renders the description, checklists, attachments and comments
func (m DetailModel) renderRightPanel() string {
	var b strings.Builder

	scrollHint := ""
	if !m.editMode && m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			scrollHint = " ↓"
		case m.viewport.AtBottom():
			scrollHint = " ↑"
		default:
			scrollHint = " ↕"
		}
	}

	b.WriteString(detailLabelStyle.Render("Details"))
	b.WriteString(scrollIndicatorStyle.Render(scrollHint))
	b.WriteString("\n")

	if m.editMode {
		b.WriteString("\n")
		b.WriteString(m.editor.View())
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Ctrl+S to save • ESC to cancel"))
		return b.String()
	}

	b.WriteString(m.viewport.View())
	return b.String()
}

// updateViewportContent formats the card body for viewport display
func (m *DetailModel) updateViewportContent() {
	var b strings.Builder
	wrapWidth := m.viewport.Width - 4
	if wrapWidth < 30 {
		wrapWidth = 30
	}
	separator := "\n\n" + dimStyle.Render(strings.Repeat("─", min(20, wrapWidth))) + "\n\n"

	if m.card.Description != "" {
		b.WriteString(commentBodyStyle.Render(wordwrap.String(m.card.Description, wrapWidth)))
	} else {
		b.WriteString(dimStyle.Render("No description. Press 'e' to add one."))
	}

	for _, cl := range m.card.Checklists {
		b.WriteString(separator)
		b.WriteString(commentAuthorStyle.Render(cl.Title))
		for _, item := range cl.Items {
			mark := "[ ]"
			if item.Completed {
				mark = "[x]"
			}
			b.WriteString("\n" + mark + " " + wordwrap.String(item.Text, wrapWidth-4))
		}
	}

	if len(m.card.Attachments) > 0 {
		b.WriteString(separator)
		b.WriteString(commentAuthorStyle.Render("Attachments"))
		for _, a := range m.card.Attachments {
			b.WriteString("\n" + a.Name + " " + dimStyle.Render(a.URL))
		}
	}

	for _, c := range m.card.Comments {
		b.WriteString(separator)
		author := c.Author
		if author == "" {
			author = "(unknown)"
		}
		b.WriteString(commentAuthorStyle.Render(author))
		b.WriteString(" ")
		b.WriteString(commentTimeStyle.Render(formatTimeAgo(c.CreatedAt)))
		b.WriteString("\n")
		b.WriteString(commentBodyStyle.Render(wordwrap.String(c.Text, wrapWidth)))
	}

	m.viewport.SetContent(b.String())
}

// formatDate shortens an ISO8601 timestamp to its date.
func formatDate(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format("2006-01-02")
	}
	return ts
}

// formatTimeAgo converts ISO8601 timestamp to relative time
func formatTimeAgo(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		if len(timestamp) >= 10 {
			return timestamp[:10]
		}
		return timestamp
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/24/30))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/24/365))
	}
}

type cardUpdatedMsg struct {
	card domain.Card
	err  error
}
