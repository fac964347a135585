package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDetail(t *testing.T, client *fakeClient) DetailModel {
	t.Helper()
	card := domain.Card{
		ID:          "x",
		Title:       "Write docs",
		ListID:      "todo",
		Description: "old",
		DueDate:     "2026-03-09T00:00:00Z",
		Labels:      []domain.Label{{ID: "l1", Name: "docs", Color: "blue"}},
		Attachments: []domain.Attachment{{ID: "a1", Name: "draft.pdf", URL: "https://example.com/draft.pdf"}},
		Comments:    []domain.Comment{{ID: "c1", Text: "Looks good", Author: "sam"}},
	}
	detail := NewDetailModel(card, "Todo", client, context.Background())
	model, _ := detail.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(DetailModel)
}

func pressDetail(t *testing.T, detail DetailModel, keys ...string) (DetailModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var model tea.Model
		model, cmd = detail.Update(keyMsg(k))
		detail = model.(DetailModel)
	}
	return detail, cmd
}

func TestDetailModel_View(t *testing.T) {
	detail := createTestDetail(t, &fakeClient{})

	view := detail.View()
	assert.Contains(t, view, "Write docs")
	assert.Contains(t, view, "in Todo, position 1")
	assert.Contains(t, view, "2026-03-09")
	assert.Contains(t, view, "docs")
	assert.Contains(t, view, "Looks good")
	assert.Contains(t, view, "[o]open link")
}

func TestDetailModel_EditDescription(t *testing.T) {
	client := &fakeClient{}
	detail := createTestDetail(t, client)

	detail, cmd := pressDetail(t, detail, "e")
	require.NotNil(t, cmd)
	assert.True(t, detail.editMode)
	assert.Equal(t, "old", detail.editor.Value())

	detail, _ = pressDetail(t, detail, " and new")
	detail, cmd = pressDetail(t, detail, "ctrl+s")
	require.NotNil(t, cmd)
	assert.True(t, detail.saving)

	msg := cmd()
	require.IsType(t, cardUpdatedMsg{}, msg)
	require.Len(t, client.patches, 1)
	require.NotNil(t, client.patches[0].Description)
	assert.Equal(t, "old and new", *client.patches[0].Description)

	model, _ := detail.Update(msg)
	detail = model.(DetailModel)
	assert.False(t, detail.editMode)
	assert.False(t, detail.saving)
	assert.Equal(t, "old and new", detail.card.Description)
	assert.Contains(t, detail.View(), "Description saved")
}

func TestDetailModel_SaveFailure(t *testing.T) {
	detail := createTestDetail(t, &fakeClient{})
	detail, _ = pressDetail(t, detail, "e")

	model, _ := detail.Update(cardUpdatedMsg{err: errors.New("conflict")})
	detail = model.(DetailModel)
	assert.True(t, detail.editMode, "stays in edit mode")
	assert.Contains(t, detail.errorMsg, "conflict")
}

func TestDetailModel_UnsavedChangesPrompt(t *testing.T) {
	detail := createTestDetail(t, &fakeClient{})

	detail, _ = pressDetail(t, detail, "e", "!", "esc")
	assert.True(t, detail.confirmExit)
	assert.Contains(t, detail.View(), "Unsaved description")

	detail, _ = pressDetail(t, detail, "n")
	assert.False(t, detail.confirmExit)
	assert.True(t, detail.editMode)

	detail, _ = pressDetail(t, detail, "esc", "y")
	assert.False(t, detail.editMode)
	assert.Equal(t, "old", detail.card.Description)
}

func TestDetailModel_EscWithoutChanges(t *testing.T) {
	detail := createTestDetail(t, &fakeClient{})

	detail, _ = pressDetail(t, detail, "e", "esc")
	assert.False(t, detail.editMode)
	assert.False(t, detail.confirmExit)

	_, cmd := pressDetail(t, detail, "esc")
	require.NotNil(t, cmd)
	assert.Equal(t, closeDetailMsg{}, cmd())
}

func TestDetailModel_OpenLink(t *testing.T) {
	detail := createTestDetail(t, &fakeClient{})

	var opened []string
	detail.openURL = func(url string) error {
		opened = append(opened, url)
		return nil
	}
	detail, _ = pressDetail(t, detail, "o")
	assert.Equal(t, []string{"https://example.com/draft.pdf"}, opened)

	detail.openURL = func(string) error { return errors.New("no browser") }
	detail, _ = pressDetail(t, detail, "o")
	assert.Contains(t, detail.errorMsg, "no browser")
}

func TestDetailModel_LinkFallsBackToCover(t *testing.T) {
	detail := NewDetailModel(domain.Card{ID: "c", CoverImage: "https://example.com/cover.png"}, "", &fakeClient{}, context.Background())
	assert.Equal(t, "https://example.com/cover.png", detail.linkURL())

	detail = NewDetailModel(domain.Card{ID: "c"}, "", &fakeClient{}, context.Background())
	assert.Empty(t, detail.linkURL())
	assert.NotContains(t, detail.View(), "[o]open link")
}

func TestFormatTimeAgo(t *testing.T) {
	assert.Equal(t, "2024-01-02", formatTimeAgo("2024-01-02 10:00"))
	assert.Equal(t, "", formatTimeAgo(""))
	assert.Equal(t, "2026-03-09", formatDate("2026-03-09T10:00:00Z"))
	assert.Equal(t, "soon", formatDate("soon"))
}
