// Package tui provides the login prompt of wavepad's client.
package tui

import (
	"errors"
	"strings"

	"github.com/burntcarrot/wavepad/store"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the prompt without logging in.
var ErrCancelled = errors.New("login cancelled")

// Credentials identify a user and the document they edit.
type Credentials struct {
	Username string
	Document string
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(10)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

const (
	usernameField = iota
	documentField
)

type model struct {
	inputs   []textinput.Model
	focus    int
	err      string
	Quitting bool
	LoggedIn bool
}

func initialModel(username, document string) model {
	name := textinput.New()
	name.Placeholder = "Username"
	name.CharLimit = 64
	name.Width = 30
	name.SetValue(username)
	name.Focus()

	doc := textinput.New()
	doc.Placeholder = "default"
	doc.CharLimit = 128
	doc.Width = 30
	doc.SetValue(document)

	return model{inputs: []textinput.Model{name, doc}}
}

// Login prompts for a username and document id, starting from the given
// values.
func Login(username, document string) (Credentials, error) {
	final, err := tea.NewProgram(initialModel(username, document)).Run()
	if err != nil {
		return Credentials{}, err
	}
	m := final.(model)
	if !m.LoggedIn {
		return Credentials{}, ErrCancelled
	}
	return m.credentials(), nil
}

func (m model) credentials() Credentials {
	doc := strings.TrimSpace(m.inputs[documentField].Value())
	if doc == "" {
		doc = "default"
	}
	return Credentials{
		Username: strings.TrimSpace(m.inputs[usernameField].Value()),
		Document: doc,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			cmd := m.setFocus(1 - m.focus)
			return m, cmd
		case tea.KeyEnter:
			if m.focus == usernameField {
				cmd := m.setFocus(documentField)
				return m, cmd
			}
			if err := m.validate(); err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.LoggedIn = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// setFocus moves the cursor to field i.
func (m *model) setFocus(i int) tea.Cmd {
	m.focus = i
	for j := range m.inputs {
		if j != i {
			m.inputs[j].Blur()
		}
	}
	return m.inputs[i].Focus()
}

func (m model) validate() error {
	c := m.credentials()
	if c.Username == "" {
		return errors.New("username is required")
	}
	return store.CheckWaveletID(c.Document)
}

func (m model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wavepad") + "\n\n")
	b.WriteString(labelStyle.Render("Username") + m.inputs[usernameField].View() + "\n")
	b.WriteString(labelStyle.Render("Document") + m.inputs[documentField].View() + "\n\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n\n")
	}
	b.WriteString(helpStyle.Render("(tab to switch fields, enter to join, esc to quit)") + "\n")
	return b.String()
}
