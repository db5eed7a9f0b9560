package challenges

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	challengedto "habitkit/internal/modules/challenge/dto"
	sessiondto "habitkit/internal/modules/session/dto"
	"habitkit/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	List(ctx context.Context) ([]challengedto.ChallengeOutput, error)
	GetActive(ctx context.Context, challengeID string) (sessiondto.ActiveSessionOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Challenges []challengedto.ChallengeOutput
	Err        error
}

type ActiveLoadedMsg struct {
	ChallengeID string
	Active      sessiondto.ActiveSessionOutput
	Err         error
}

// ─── list item ───────────────────────────────────────────────────────────────

type challengeItem struct {
	challenge challengedto.ChallengeOutput
}

func (i challengeItem) Title() string { return i.challenge.Title }
func (i challengeItem) Description() string {
	if i.challenge.DurationDays > 0 {
		return fmt.Sprintf("%d pts  %d days", i.challenge.Points, i.challenge.DurationDays)
	}
	return fmt.Sprintf("%d pts", i.challenge.Points)
}
func (i challengeItem) FilterValue() string { return i.challenge.Title + " " + i.challenge.ID }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    Port
	list    list.Model
	active  sessiondto.ActiveSessionOutput
	activeE error
	preview viewport.Model
	spinner spinner.Model
	loading bool
	width   int
	height  int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Challenges"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{port: port, list: l, preview: vp, spinner: sp, loading: true}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

// Reload refetches the catalog.
func (m Model) Reload() tea.Cmd {
	return func() tea.Msg {
		items, err := m.port.List(context.Background())
		return LoadedMsg{Challenges: items, Err: err}
	}
}

// RefreshActive refetches the selected challenge's session state.
func (m Model) RefreshActive() tea.Cmd {
	if id, ok := m.SelectedID(); ok {
		return m.loadActiveCmd(id)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Challenges: " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Challenges))
		for i, c := range msg.Challenges {
			items[i] = challengeItem{challenge: c}
		}
		cmds = append(cmds, m.list.SetItems(items), m.RefreshActive())
		m.preview.SetContent(m.renderDetail())

	case ActiveLoadedMsg:
		if id, ok := m.SelectedID(); ok && id == msg.ChallengeID {
			m.active, m.activeE = msg.Active, msg.Err
			m.preview.SetContent(m.renderDetail())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.loading {
		var lCmd tea.Cmd
		prevIdx := m.list.Index()
		m.list, lCmd = m.list.Update(msg)
		cmds = append(cmds, lCmd)
		if m.list.Index() != prevIdx {
			m.active, m.activeE = sessiondto.ActiveSessionOutput{}, nil
			m.preview.SetContent(m.renderDetail())
			cmds = append(cmds, m.RefreshActive())
		}

		var vCmd tea.Cmd
		m.preview, vCmd = m.preview.Update(msg)
		cmds = append(cmds, vCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading challenges…")
	}

	listW := m.width * 4 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := theme.Pane.
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.preview.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m Model) SelectedID() (string, bool) {
	if item, ok := m.list.SelectedItem().(challengeItem); ok {
		return item.challenge.ID, true
	}
	return "", false
}

func (m Model) Selected() (challengedto.ChallengeOutput, bool) {
	item, ok := m.list.SelectedItem().(challengeItem)
	return item.challenge, ok
}

// Filtering reports whether the list's search filter is currently active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m *Model) resize() {
	listW := m.width * 4 / 10
	detailW := m.width - listW
	m.list.SetSize(listW, m.height)
	m.preview.Width = detailW - 4
	m.preview.Height = m.height - 4
}

func (m Model) renderDetail() string {
	c, ok := m.Selected()
	if !ok {
		return theme.Muted.Render("Select a challenge to see details")
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(c.Title) + "\n\n")
	sb.WriteString(theme.Muted.Render("id:      ") + c.ID + "\n")
	sb.WriteString(theme.Muted.Render("points:  ") + theme.Points.Render(fmt.Sprint(c.Points)) + "\n")
	if c.DurationDays > 0 {
		sb.WriteString(theme.Muted.Render("days:    ") + fmt.Sprint(c.DurationDays) + "\n")
	}
	switch {
	case m.activeE != nil:
		sb.WriteString(theme.Muted.Render("status:  ") + theme.Warn.Render(m.activeE.Error()) + "\n")
	case m.active.Found:
		sb.WriteString(theme.Muted.Render("status:  ") + theme.Hot.Render("in progress since "+m.active.Session.StartedAt.Local().Format("Jan 2 15:04")) + "\n")
	default:
		sb.WriteString(theme.Muted.Render("status:  ") + "not started\n")
	}
	if c.Description != "" {
		sb.WriteString("\n" + c.Description + "\n")
	}
	if len(c.ReflectionQuestions) > 0 {
		sb.WriteString("\n" + theme.Title.Render("Reflection") + "\n")
		for _, q := range c.ReflectionQuestions {
			sb.WriteString("  • " + q + "\n")
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("s: start  x: cancel  :complete <answer>"))
	return sb.String()
}

func (m Model) loadActiveCmd(challengeID string) tea.Cmd {
	return func() tea.Msg {
		active, err := m.port.GetActive(context.Background(), challengeID)
		return ActiveLoadedMsg{ChallengeID: challengeID, Active: active, Err: err}
	}
}
