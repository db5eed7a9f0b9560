package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	challengedto "habitkit/internal/modules/challenge/dto"
	sessiondto "habitkit/internal/modules/session/dto"
	challengesview "habitkit/internal/ui/views/challenges"
)

type fakeSession struct {
	started   []string
	completed map[string]map[string]string
	running   map[string]bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{completed: map[string]map[string]string{}, running: map[string]bool{}}
}

func (f *fakeSession) Start(_ context.Context, id string) (sessiondto.StartOutput, error) {
	f.started = append(f.started, id)
	created := !f.running[id]
	f.running[id] = true
	return sessiondto.StartOutput{Session: sessiondto.SessionOutput{ChallengeID: id}, Created: created}, nil
}

func (f *fakeSession) Complete(_ context.Context, id string, _ bool, answers map[string]string) (sessiondto.CompleteOutput, error) {
	f.completed[id] = answers
	delete(f.running, id)
	return sessiondto.CompleteOutput{SessionDeactivated: true}, nil
}

func (f *fakeSession) Cancel(_ context.Context, id string) (sessiondto.CancelOutput, error) {
	was := f.running[id]
	delete(f.running, id)
	return sessiondto.CancelOutput{Cancelled: was}, nil
}

func (f *fakeSession) GetActive(_ context.Context, id string) (sessiondto.ActiveSessionOutput, error) {
	return sessiondto.ActiveSessionOutput{Found: f.running[id]}, nil
}

func (f *fakeSession) ListInProgress(context.Context) ([]sessiondto.InProgressOutput, error) {
	var out []sessiondto.InProgressOutput
	for id := range f.running {
		out = append(out, sessiondto.InProgressOutput{ChallengeID: id, ChallengeTitle: id})
	}
	return out, nil
}

func (f *fakeSession) Export(context.Context, string) (sessiondto.ExportOutput, error) {
	return sessiondto.ExportOutput{}, nil
}

type fakeCatalog []challengedto.ChallengeOutput

func (c fakeCatalog) List(context.Context) ([]challengedto.ChallengeOutput, error) { return c, nil }

func loaded(t *testing.T, session *fakeSession) Model {
	t.Helper()
	catalog := fakeCatalog{{ID: "walk", Title: "Daily Walk", Points: 10, ReflectionQuestions: []string{"How far?"}}}
	m := NewModel(session, catalog, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	items, err := catalog.List(context.Background())
	require.NoError(t, err)
	next, _ = next.Update(challengesview.LoadedMsg{Challenges: items})
	return next.(Model)
}

func TestStartKeyStartsSelectedChallenge(t *testing.T) {
	t.Parallel()
	session := newFakeSession()
	m := loaded(t, session)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []string{"walk"}, session.started)

	next, refresh := m.Update(msg)
	assert.Contains(t, next.(Model).status, "started walk")
	assert.NotNil(t, refresh, "without a signal channel the dashboard reloads itself")
}

func TestPaletteCompleteFilesAnswerUnderFirstQuestion(t *testing.T) {
	t.Parallel()
	session := newFakeSession()
	m := loaded(t, session)

	_, cmd := m.executePalette("complete about 5km")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, map[string]string{"How far?": "about 5km"}, session.completed["walk"])

	next, cmd := m.executePalette("complete")
	assert.Nil(t, cmd)
	assert.Equal(t, "usage: complete <answer>", next.(Model).status)

	next, _ = m.executePalette("dance")
	assert.Equal(t, "unknown command: dance", next.(Model).status)
}

func TestChangeSignalTriggersReload(t *testing.T) {
	t.Parallel()
	changes := make(chan struct{}, 1)
	m := NewModel(newFakeSession(), fakeCatalog{}, changes)

	wait := m.waitForChange()
	require.NotNil(t, wait)
	changes <- struct{}{}
	assert.Equal(t, changedMsg{}, wait())

	_, cmd := m.Update(changedMsg{})
	assert.NotNil(t, cmd)

	close(changes)
	assert.Nil(t, m.waitForChange()())
}
