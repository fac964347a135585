package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

var (
	// HelpOverlayStyle defines the style for the help overlay container.
	HelpOverlayStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		MarginTop(2)
)

// mouseHelp lists the pointer gestures shown under the key bindings.
var mouseHelp = []struct{ gesture, action string }{
	{"drag card", "move to another slot or list"},
	{"drag list header", "reorder lists"},
	{"click card", "select"},
	{"wheel", "previous/next card"},
	{"esc while dragging", "cancel the drag"},
}

// HelpModel renders the key and mouse reference overlay.
type HelpModel struct {
	help   help.Model
	keymap KeyMap
}

// NewHelpModel creates a new help overlay model.
func NewHelpModel(keymap KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true

	return HelpModel{
		help:   h,
		keymap: keymap,
	}
}

// View renders the overlay for a terminal of the given width.
func (m HelpModel) View(width int) string {
	m.help.Width = width - 8 // Padding and border

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	b.WriteString("\n\n")
	b.WriteString(TitleStyle.Render("Mouse"))

	gestureWidth := 0
	for _, h := range mouseHelp {
		gestureWidth = max(gestureWidth, lipgloss.Width(h.gesture))
	}
	for _, h := range mouseHelp {
		b.WriteString("\n")
		b.WriteString(m.help.Styles.FullKey.Render(fmt.Sprintf("%-*s", gestureWidth, h.gesture)))
		b.WriteString("  ")
		b.WriteString(m.help.Styles.FullDesc.Render(h.action))
	}
	return HelpOverlayStyle.Render(b.String())
}
