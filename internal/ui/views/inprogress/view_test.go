package inprogress

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessiondto "habitkit/internal/modules/session/dto"
)

type stubPort []sessiondto.InProgressOutput

func (s stubPort) ListInProgress(context.Context) ([]sessiondto.InProgressOutput, error) {
	return s, nil
}

func TestElapsed(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "just now", Elapsed(20*time.Second))
	assert.Equal(t, "25m", Elapsed(25*time.Minute))
	assert.Equal(t, "2h 5m", Elapsed(2*time.Hour+5*time.Minute))
	assert.Equal(t, "3d 4h", Elapsed(76*time.Hour))
}

func TestReloadFillsRowsAndMarksPlaceholders(t *testing.T) {
	t.Parallel()
	now := time.Now()
	port := stubPort{
		{SessionID: "s1", ChallengeID: "walk", ChallengeTitle: "Daily Walk", Points: 10, StartedAt: now.Add(-time.Hour)},
		{SessionID: "s2", ChallengeID: "gone", ChallengeTitle: "Unknown Challenge", StartedAt: now, Placeholder: true},
	}
	m := New(port)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})

	msg := m.Reload()()
	m, _ = m.Update(msg)
	require.Equal(t, 2, m.Count())
	id, ok := m.SelectedChallengeID()
	require.True(t, ok)
	assert.Equal(t, "walk", id)
	assert.Contains(t, m.View(), "Unknown Challenge (gone)")
}
