package setup

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luka-loehr/promptx-cli/internal/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	groupStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// pickerModel is a single-choice list of models grouped by provider.
type pickerModel struct {
	title  string
	items  []models.Descriptor
	cursor int

	chosen    bool
	cancelled bool
}

func newPicker(title string, items []models.Descriptor, current string) pickerModel {
	m := pickerModel{title: title, items: items}
	for i, d := range items {
		if d.ID == current {
			m.cursor = i
			break
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.cursor = (m.cursor + len(m.items) - 1) % len(m.items)
	case "down", "j":
		m.cursor = (m.cursor + 1) % len(m.items)
	case "enter":
		m.chosen = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.chosen {
		return titleStyle.Render(m.title) + " " + selectedStyle.Render(m.items[m.cursor].Label()) + "\n"
	}
	if m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	var group models.Provider
	for i, d := range m.items {
		if d.Provider != group {
			group = d.Provider
			b.WriteString(groupStyle.Render("  " + group.DisplayName()))
			b.WriteString("\n")
		}
		line := "    " + d.Name
		if models.IsThinking(d) {
			line += hintStyle.Render(" (thinking)")
		}
		if i == m.cursor {
			line = cursorStyle.Render("  > " + d.Name)
			if models.IsThinking(d) {
				line += hintStyle.Render(" (thinking)")
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("↑/↓ to move, enter to select, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the highlighted descriptor.
func (m pickerModel) Selected() models.Descriptor {
	return m.items[m.cursor]
}
