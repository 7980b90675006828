package app

import (
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
)

// TextInput is a thin wrapper keeping the bubbles model behind a pointer so
// controllers can share one instance across form steps.
type TextInput struct {
	input textinput.Model
}

func NewTextInput(placeholder string) *TextInput {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = 256
	input.Prompt = "> "
	return &TextInput{input: input}
}

func (t *TextInput) Focus() {
	t.input.Focus()
}

func (t *TextInput) Blur() {
	t.input.Blur()
}

func (t *TextInput) SetPlaceholder(value string) {
	t.input.Placeholder = value
}

func (t *TextInput) SetValue(value string) {
	t.input.SetValue(value)
}

func (t *TextInput) Value() string {
	return t.input.Value()
}

func (t *TextInput) Clear() {
	t.input.SetValue("")
}

func (t *TextInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return cmd
}

func (t *TextInput) View() string {
	return t.input.View()
}
