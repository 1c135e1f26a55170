package browse

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type pickerModel struct {
	searches []model.ScheduledSearch
	cursor   int
	chosen   int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.searches)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.searches) > 0 {
				m.chosen = m.cursor
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Saved searches, pick one to run"))
	b.WriteByte('\n')

	if len(m.searches) == 0 {
		b.WriteString(pickerItemStyle.Render("(none saved, add one with `jobscout searches add`)") + "\n")
	}
	for i, s := range m.searches {
		label := searchLabel(s)
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(pickerItemStyle.Render(label) + "\n")
		}
	}

	b.WriteString(pickerHintStyle.Render("↑/↓/j/k navigate  enter run  q quit"))
	return b.String()
}

func searchLabel(s model.ScheduledSearch) string {
	label := s.Criteria.Keywords
	if s.Criteria.Location != "" {
		label += " in " + s.Criteria.Location
	}
	return fmt.Sprintf("%s (%s, %s)", label, s.Criteria.Recency, s.Frequency)
}

// RunSearchPicker shows an interactive saved-search selector.
// Returns the index of the chosen search, or -1 if the user quit.
func RunSearchPicker(searches []model.ScheduledSearch) (int, error) {
	p := tea.NewProgram(pickerModel{searches: searches, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	chosen := result.(pickerModel).chosen
	if chosen < 0 {
		return -1, nil
	}
	return chosen, nil
}
