package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danmuget/danmuget/pkg/integrations/dandan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// AnimeListModel is the bubbletea model for picking one search result.
type AnimeListModel struct {
	Animes   []dandan.Anime
	Cursor   int
	Selected *dandan.Anime
	Height   int
	Offset   int
}

// NewAnimeListModel creates a new search result list model.
func NewAnimeListModel(animes []dandan.Anime) AnimeListModel {
	return AnimeListModel{Animes: animes, Height: 15}
}

func (m AnimeListModel) Init() tea.Cmd {
	return nil
}

func (m AnimeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Animes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			anime := m.Animes[m.Cursor]
			if len(anime.Episodes) == 0 {
				return m, nil
			}
			m.Selected = &anime
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

func (m AnimeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Title"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Animes))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		a := m.Animes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		kind := a.TypeTag()
		if kind == "" {
			kind = "—"
		}
		rows = append(rows, []string{
			cursor, a.Title, kind, fmt.Sprintf("%d", len(a.Episodes)),
			strings.Join(a.PlatformTags(), " "),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Title", "Type", "Eps", "Platforms").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			actualIdx := m.Offset + row
			if actualIdx >= len(m.Animes) {
				return lipgloss.NewStyle()
			}
			hasEpisodes := len(m.Animes[actualIdx].Episodes) > 0

			base := lipgloss.NewStyle()
			if actualIdx == m.Cursor {
				if hasEpisodes {
					return base.Foreground(colorGreen).Bold(true)
				}
				return base.Foreground(colorDim).Bold(true)
			}
			if !hasEpisodes {
				return base.Foreground(colorDim)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Animes))))

	return b.String()
}

// PlatformListModel is the bubbletea model for picking a platform tag
// when a title carries episodes from more than one source.
type PlatformListModel struct {
	Anime    *dandan.Anime
	Tags     []string
	Cursor   int
	Selected string
}

// NewPlatformListModel creates a new platform list model.
func NewPlatformListModel(anime *dandan.Anime) PlatformListModel {
	return PlatformListModel{Anime: anime, Tags: anime.PlatformTags()}
}

func (m PlatformListModel) Init() tea.Cmd {
	return nil
}

func (m PlatformListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Tags)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = m.Tags[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m PlatformListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Platform"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, tag := range m.Tags {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}
		count := len(m.Anime.EpisodesFor(tag))
		line := fmt.Sprintf("%s%-10s  %s", cursor, tag, listDimStyle.Render(fmt.Sprintf("%d episodes", count)))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}
