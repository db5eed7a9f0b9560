package inprogress

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "habitkit/internal/modules/session/dto"
	"habitkit/internal/ui/theme"
)

type Port interface {
	ListInProgress(ctx context.Context) ([]sessiondto.InProgressOutput, error)
}

type LoadedMsg struct {
	Items []sessiondto.InProgressOutput
	Err   error
	At    time.Time
}

// Model lists running sessions. The list query also repairs half-completed
// sessions, so every reload may shrink it.
type Model struct {
	port   Port
	table  table.Model
	items  []sessiondto.InProgressOutput
	err    error
	loaded time.Time
	width  int
	height int
}

func New(port Port) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(theme.Sapphire).BorderForeground(theme.Surface1).Bold(true)
	styles.Selected = styles.Selected.Foreground(theme.Base).Background(theme.Lavender)
	t.SetStyles(styles)
	return Model{port: port, table: t}
}

func (m Model) Init() tea.Cmd {
	return m.Reload()
}

func (m Model) Reload() tea.Cmd {
	return func() tea.Msg {
		items, err := m.port.ListInProgress(context.Background())
		return LoadedMsg{Items: items, Err: err, At: time.Now()}
	}
}

// Count is the number of sessions shown after the last reload.
func (m Model) Count() int { return len(m.items) }

// SelectedChallengeID returns the highlighted row's challenge.
func (m Model) SelectedChallengeID() (string, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return "", false
	}
	return m.items[idx].ChallengeID, true
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(m.width))
		m.table.SetHeight(max(m.height-4, 3))
	case LoadedMsg:
		m.err = msg.Err
		m.loaded = msg.At
		if msg.Err == nil {
			m.items = msg.Items
			m.table.SetRows(rows(msg.Items, msg.At))
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := theme.Title.Render("In progress")
	switch {
	case m.err != nil:
		header += "  " + theme.Warn.Render(m.err.Error())
	case !m.loaded.IsZero():
		header += "  " + theme.Muted.Render("updated "+m.loaded.Format("15:04:05"))
	}
	body := m.table.View()
	if m.err == nil && len(m.items) == 0 && !m.loaded.IsZero() {
		body = theme.Muted.Render("Nothing running. Start a challenge from the Challenges tab.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body)
}

func columns(width int) []table.Column {
	titleW := max(width-44, 16)
	return []table.Column{
		{Title: "Challenge", Width: titleW},
		{Title: "Points", Width: 8},
		{Title: "Started", Width: 16},
		{Title: "Running", Width: 12},
	}
}

func rows(items []sessiondto.InProgressOutput, now time.Time) []table.Row {
	out := make([]table.Row, 0, len(items))
	for _, item := range items {
		title := item.ChallengeTitle
		if item.Placeholder {
			title = fmt.Sprintf("%s (%s)", title, item.ChallengeID)
		}
		out = append(out, table.Row{
			title,
			fmt.Sprint(item.Points),
			item.StartedAt.Local().Format("Jan 2 15:04"),
			Elapsed(now.Sub(item.StartedAt)),
		})
	}
	return out
}

// Elapsed renders a coarse running time such as "3d 4h" or "25m".
func Elapsed(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
