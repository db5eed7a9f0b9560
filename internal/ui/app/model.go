package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	challengedto "habitkit/internal/modules/challenge/dto"
	sessiondto "habitkit/internal/modules/session/dto"
	"habitkit/internal/ui/components"
	"habitkit/internal/ui/theme"
	challengesview "habitkit/internal/ui/views/challenges"
	inprogressview "habitkit/internal/ui/views/inprogress"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type SessionPort interface {
	Start(ctx context.Context, challengeID string) (sessiondto.StartOutput, error)
	Complete(ctx context.Context, challengeID string, anonymous bool, answers map[string]string) (sessiondto.CompleteOutput, error)
	Cancel(ctx context.Context, challengeID string) (sessiondto.CancelOutput, error)
	GetActive(ctx context.Context, challengeID string) (sessiondto.ActiveSessionOutput, error)
	ListInProgress(ctx context.Context) ([]sessiondto.InProgressOutput, error)
	Export(ctx context.Context, challengeID string) (sessiondto.ExportOutput, error)
}

type ChallengePort interface {
	List(ctx context.Context) ([]challengedto.ChallengeOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabChallenges tabID = iota
	tabInProgress
	tabCount
)

var tabLabels = [tabCount]string{"Challenges", "In Progress"}

// ─── async messages ───────────────────────────────────────────────────────────

type changedMsg struct{}

type actionMsg struct {
	status string
	err    error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Start   key.Binding
	Cancel  key.Binding
	Refresh key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start challenge")),
		Cancel:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel session")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Start, k.Cancel, k.Refresh},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root dashboard model. It routes tabs, runs session commands
// and reloads both views whenever a "sessions changed" signal arrives.
type Model struct {
	session SessionPort
	changes <-chan struct{}

	challengesView challengesview.Model
	inProgressView inprogressview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	width     int
	height    int
}

// NewModel builds the dashboard. changes may be nil, in which case the
// views refresh only after the dashboard's own actions.
func NewModel(session SessionPort, challenges ChallengePort, changes <-chan struct{}) Model {
	return Model{
		session:        session,
		changes:        changes,
		challengesView: challengesview.New(challengesBridge{challenges: challenges, session: session}),
		inProgressView: inprogressview.New(session),
		activeTab:      tabChallenges,
		keys:           defaultKeys(),
		help:           help.New(),
		palette:        components.NewPalette("start", "cancel", "complete <answer>", "complete-anon <answer>", "refresh", "export"),
		status:         "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.challengesView.Init(),
		m.inProgressView.Init(),
		m.waitForChange(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.refresh(), m.waitForChange())

	case actionMsg:
		if msg.err != nil {
			m.status = theme.Warn.Render(msg.err.Error())
		} else {
			m.status = msg.status
		}
		// Without a signal channel the dashboard refreshes itself.
		if m.changes == nil {
			return m, m.refresh()
		}
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	// Loaded messages belong to one view; route them regardless of tab.
	case challengesview.LoadedMsg, challengesview.ActiveLoadedMsg:
		var cmd tea.Cmd
		m.challengesView, cmd = m.challengesView.Update(msg)
		return m, cmd

	case inprogressview.LoadedMsg:
		var cmd tea.Cmd
		m.inProgressView, cmd = m.inProgressView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		// Yield to the list filter while it is open.
		if m.activeTab == tabChallenges && m.challengesView.Filtering() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case msg.String() == "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.Start):
			if id, ok := m.selectedChallenge(); ok {
				return m, m.startCmd(id)
			}
		case key.Matches(msg, m.keys.Cancel):
			if id, ok := m.selectedChallenge(); ok {
				return m, m.cancelCmd(id)
			}
		}
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabChallenges:
		m.challengesView, tabCmd = m.challengesView.Update(msg)
	case tabInProgress:
		m.inProgressView, tabCmd = m.inProgressView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabInProgress:
		content = m.inProgressView.View()
	default:
		content = m.challengesView.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == tabInProgress {
			label = fmt.Sprintf("%s (%d)", label, m.inProgressView.Count())
		}
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	bar := "habitkit  " + strings.Join(parts, theme.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	right := theme.Muted.Render("?:help  tab:switch  ::command  q:quit")
	gap := max(m.width-lipgloss.Width(m.status)-lipgloss.Width(right), 1)
	bar := m.status + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	name, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	if name == "" {
		return m, nil
	}
	rest = strings.TrimSpace(rest)

	switch name {
	case "refresh":
		return m, m.refresh()
	case "export":
		id, _ := m.selectedChallenge()
		return m, m.exportCmd(id)
	}

	id, ok := m.selectedChallenge()
	if !ok {
		m.status = "no challenge selected"
		return m, nil
	}
	switch name {
	case "start":
		return m, m.startCmd(id)
	case "cancel":
		return m, m.cancelCmd(id)
	case "complete", "complete-anon":
		if rest == "" {
			m.status = "usage: " + name + " <answer>"
			return m, nil
		}
		return m, m.completeCmd(id, name == "complete-anon", rest)
	default:
		m.status = "unknown command: " + name
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m Model) selectedChallenge() (string, bool) {
	if m.activeTab == tabInProgress {
		return m.inProgressView.SelectedChallengeID()
	}
	return m.challengesView.SelectedID()
}

// answerKey is the question an inline answer is filed under: the
// challenge's first reflection question, or a generic heading.
func (m Model) answerKey(challengeID string) string {
	if c, ok := m.challengesView.Selected(); ok && c.ID == challengeID && len(c.ReflectionQuestions) > 0 {
		return c.ReflectionQuestions[0]
	}
	return "Reflection"
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.challengesView, _ = m.challengesView.Update(sz)
	m.inProgressView, _ = m.inProgressView.Update(sz)
}

func (m Model) refresh() tea.Cmd {
	return tea.Batch(m.inProgressView.Reload(), m.challengesView.RefreshActive())
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) startCmd(challengeID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Start(context.Background(), challengeID)
		if err != nil {
			return actionMsg{err: fmt.Errorf("start %s: %w", challengeID, err)}
		}
		if !out.Created {
			return actionMsg{status: challengeID + " already in progress"}
		}
		return actionMsg{status: theme.Good.Render("started " + challengeID)}
	}
}

func (m Model) cancelCmd(challengeID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Cancel(context.Background(), challengeID)
		if err != nil {
			return actionMsg{err: fmt.Errorf("cancel %s: %w", challengeID, err)}
		}
		if !out.Cancelled {
			return actionMsg{status: "no active session for " + challengeID}
		}
		return actionMsg{status: "cancelled " + challengeID}
	}
}

func (m Model) completeCmd(challengeID string, anonymous bool, answer string) tea.Cmd {
	answers := map[string]string{m.answerKey(challengeID): answer}
	return func() tea.Msg {
		out, err := m.session.Complete(context.Background(), challengeID, anonymous, answers)
		if err != nil {
			return actionMsg{err: fmt.Errorf("complete %s: %w", challengeID, err)}
		}
		status := theme.Good.Render("completed " + challengeID)
		if !out.SessionDeactivated {
			status += theme.Muted.Render(" (reflection saved)")
		}
		return actionMsg{status: status}
	}
}

func (m Model) exportCmd(challengeID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.session.Export(context.Background(), challengeID)
		if err != nil {
			return actionMsg{err: fmt.Errorf("export: %w", err)}
		}
		return actionMsg{status: fmt.Sprintf("exported %d reflections", len(out.Paths))}
	}
}

// ─── port bridges ─────────────────────────────────────────────────────────────

type challengesBridge struct {
	challenges ChallengePort
	session    SessionPort
}

func (b challengesBridge) List(ctx context.Context) ([]challengedto.ChallengeOutput, error) {
	return b.challenges.List(ctx)
}

func (b challengesBridge) GetActive(ctx context.Context, challengeID string) (sessiondto.ActiveSessionOutput, error) {
	return b.session.GetActive(ctx, challengeID)
}
