package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--user", "cli-user"}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCommandsDriveSessionLifecycle(t *testing.T) {
	dir := t.TempDir()
	catalog := "challenges:\n  - id: walk\n    title: Daily Walk\n    points: 10\n    reflection_questions: [\"How did it go?\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "challenges.yaml"), []byte(catalog), 0o644))

	assert.Contains(t, run(t, dir, "challenges"), "Daily Walk")
	assert.Contains(t, run(t, dir, "start", "walk"), "started walk")
	assert.Contains(t, run(t, dir, "start", "walk"), "already running")
	assert.Contains(t, run(t, dir, "status", "walk"), "walk: running")
	assert.Contains(t, run(t, dir, "list"), "Daily Walk")

	out := run(t, dir, "complete", "walk", "--answer", "How did it go?=Great")
	assert.Contains(t, out, "completed walk")
	assert.NotContains(t, out, "note:")

	assert.Contains(t, run(t, dir, "status", "walk"), "not running")
	assert.Contains(t, run(t, dir, "list"), "nothing in progress")
	assert.Contains(t, run(t, dir, "cancel", "walk"), "no running session")

	exported := run(t, dir, "reflections", "export")
	assert.Contains(t, exported, "exported 1 reflections")
}

func TestCompleteRejectsBlankAnswers(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--data-dir", dir, "--user", "cli-user", "complete", "walk", "--answer", "Q=  "})
	require.Error(t, cmd.Execute())
}

func TestParseAnswers(t *testing.T) {
	t.Parallel()
	got, err := parseAnswers([]string{"Mood = good", "Notes=a=b", "Mood=better"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Mood": "better", "Notes": "a=b"}, got)

	_, err = parseAnswers([]string{"no separator"})
	require.Error(t, err)
}

func TestPromptAnswersStopsAtEOF(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	got, err := promptAnswers(strings.NewReader("first\n"), out, []string{"One?", "Two?"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"One?": "first"}, got)
	assert.Contains(t, out.String(), "One?")
}
