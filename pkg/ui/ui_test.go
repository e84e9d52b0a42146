package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

func TestKnobGlyph(t *testing.T) {
	assert.Equal(t, '↙', knobGlyph(0))
	assert.Equal(t, '↑', knobGlyph(0.5))
	assert.Equal(t, '↘', knobGlyph(1))
	assert.Equal(t, '↙', knobGlyph(-0.5))
	assert.Equal(t, '↘', knobGlyph(1.5))
}

func TestModel_HighlightsLastChangedControl(t *testing.T) {
	store := ctrl.NewStore()
	model := New(store)

	store.Apply("C26", 0.504)
	next, _ := model.Update(updateMsg{})
	model, ok := next.(Model)
	require.True(t, ok)

	assert.Equal(t, ctrl.ControlID("C26"), model.highlight)
	assert.Equal(t, 0.504, model.snapshot.Values["C26"])

	store.Apply("F9", 1)
	next, _ = model.Update(updateMsg{})
	model = next.(Model)
	assert.Equal(t, ctrl.ControlID("F9"), model.highlight)
}

func TestModel_QuitKeys(t *testing.T) {
	model := New(ctrl.NewStore())

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ViewShowsStatusAndControls(t *testing.T) {
	store := ctrl.NewStore()
	store.SetStatus(ctrl.StatusConnected)
	store.Apply("C26", 1)
	store.SetDevices([]ctrl.DeviceInfo{{ID: "a", Name: "Test Surface", State: ctrl.PortOpen}})

	model := New(store)
	view := model.View()

	assert.Contains(t, view, "connected")
	assert.Contains(t, view, "C26")
	assert.Contains(t, view, "F9")
	assert.Contains(t, view, "Test Surface")
}
