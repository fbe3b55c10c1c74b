package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"minigameshub-edge/catalog"
	"minigameshub-edge/logger"
	"minigameshub-edge/service"
	"minigameshub-edge/ui"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and search the game catalog interactively",
	Long: `Launch an interactive TUI over the local catalog cache. Games can be
searched and filtered; selecting a game records a play, which is forwarded to
the backend or queued when it is unreachable.`,
	Run: func(_ *cobra.Command, _ []string) {
		runBrowse()
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// Model represents the state of the catalog browser TUI
type Model struct {
	svc *service.Service

	games         []catalog.Game
	selectedIndex int
	loading       bool
	error         string
	message       string

	search    textinput.Model
	searching bool
	spin      spinner.Model

	width  int
	height int
}

func initialModel(svc *service.Service) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	input := textinput.New()
	input.Placeholder = "search games..."
	input.CharLimit = 64
	input.Width = 32

	return Model{
		svc:     svc,
		loading: true,
		search:  input,
		spin:    s,
		width:   80,
		height:  24,
	}
}

// Initialize the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadCatalog(),
		m.spin.Tick,
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case catalogLoadedMsg:
		m.games = msg.games
		m.loading = false
	case errorMsg:
		m.error = string(msg)
		m.loading = false
	case playRecordedMsg:
		m.message = fmt.Sprintf("Recorded a play for %s", msg.name)
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearMessageMsg{}
		})
	case clearMessageMsg:
		m.message = ""
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.loading {
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.games = m.visibleGames()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.games = m.visibleGames()
			m.selectedIndex = 0
			return m, cmd
		}
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.games)-1 {
			m.selectedIndex++
		}
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "enter":
		if len(m.games) > 0 {
			return m, m.recordPlay(m.games[m.selectedIndex])
		}
	}
	return m, nil
}

// visibleGames applies the current search query to the catalog. Queries
// shorter than the search minimum fall back to the popularity listing.
func (m Model) visibleGames() []catalog.Game {
	query := m.search.Value()
	if len(query) >= 2 {
		return m.svc.Cache().Search(query, catalog.SearchOptions{})
	}
	return m.svc.Cache().Popular(0)
}

// View renders the UI
func (m Model) View() string {
	if m.loading {
		return fmt.Sprintf("%s Loading catalog...\n", m.spin.View())
	}

	if m.error != "" {
		return fmt.Sprintf("Error: %s\n", m.error)
	}

	var output string
	output += renderHeader()
	output += "\n"

	if m.searching || m.search.Value() != "" {
		output += m.search.View() + "\n\n"
	}

	if len(m.games) == 0 {
		output += ui.Faint("No games match.") + "\n"
	}

	for i, game := range m.games {
		output += m.renderGameRow(i, game)
		output += "\n"
	}

	output += "\n" + renderFooter()

	if m.message != "" {
		output += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message)
	}

	return output
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("%-36s %-16s %-10s %s", "Game", "Category", "Plays", "Rating"))
}

func renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render("↑/k: up  ↓/j: down  /: search  enter: play  q: quit")
}

func (m Model) renderGameRow(index int, game catalog.Game) string {
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.selectedIndex {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	marker := " "
	if game.Featured {
		marker = "★"
	}

	row := fmt.Sprintf("%s %-35s %-16s %-10s %s",
		marker,
		truncate(game.Name, 33),
		truncate(game.CategoryName, 14),
		ui.FormatPlays(game.Plays),
		ui.Stars(game.Rating),
	)

	return rowStyle.Render(row)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

// Message types
type catalogLoadedMsg struct {
	games []catalog.Game
}

type errorMsg string

type playRecordedMsg struct {
	name string
}

type clearMessageMsg struct{}

// Load the catalog through the service (remote first, snapshot fallback).
func (m Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.Init(context.Background()); err != nil {
			logger.Log.Errorw("Failed to load catalog", zap.Error(err))
			return errorMsg(fmt.Sprintf("Failed to load catalog: %v", err))
		}
		return catalogLoadedMsg{games: m.svc.Cache().Popular(0)}
	}
}

func (m Model) recordPlay(game catalog.Game) tea.Cmd {
	return func() tea.Msg {
		m.svc.RecordPlay(context.Background(), game.ID)
		return playRecordedMsg{name: game.Name}
	}
}

func runBrowse() {
	_, svc := bootstrap(".")
	defer svc.Close()

	p := tea.NewProgram(initialModel(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Log.Fatalw("Failed to run browser", zap.Error(err))
	}
}
