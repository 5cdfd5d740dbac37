package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/modata-dev/modata/pkg/persist"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// DiagramListModel - Interactive saved-diagram selection
// =============================================================================

// DiagramListModel is the bubbletea model for picking a saved diagram.
type DiagramListModel struct {
	Title    string
	Metas    []persist.Meta
	Last     string // last-opened diagram name, highlighted in the list
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewDiagramListModel creates a new diagram list model.
func NewDiagramListModel(title string, metas []persist.Meta, last string) DiagramListModel {
	return DiagramListModel{
		Title:  title,
		Metas:  metas,
		Last:   last,
		Height: 15,
	}
}

func (m DiagramListModel) Init() tea.Cmd {
	return nil
}

func (m DiagramListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Metas)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Metas[m.Cursor].Name
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DiagramListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Metas) {
		end = len(m.Metas)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		meta := m.Metas[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		marker := ""
		if meta.Name == m.Last {
			marker = iconArrow
		}

		rows = append(rows, []string{cursor, meta.Name, marker, formatRelativeTime(meta.UpdatedAt)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Diagram", "Last", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Metas))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// pickDiagram runs the interactive picker against the store's diagram list.
// Returns "" when the user quits without selecting.
func pickDiagram(ctx context.Context, store persist.Store, title string) (string, error) {
	metas, err := store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(metas) == 0 {
		printInfo("No saved diagrams")
		return "", nil
	}

	last, err := store.LastOpened(ctx)
	if err != nil {
		last = ""
	}

	final, err := tea.NewProgram(NewDiagramListModel(title, metas, last)).Run()
	if err != nil {
		return "", err
	}
	model, ok := final.(DiagramListModel)
	if !ok {
		return "", nil
	}
	return model.Selected, nil
}

func formatRelativeTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}

	diff := time.Since(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
