package out

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"habitkit/internal/modules/session/domain"
	"habitkit/internal/platform/markdown"
	"habitkit/internal/platform/slug"
)

var answersBlock = markdown.Block{Name: "answers"}

// MarkdownJournal writes one note per reflection under
// <root>/<challenge>/<date>-<id>.md. Re-exporting rewrites only the managed
// answers block so notes added around it survive.
type MarkdownJournal struct {
	root string
}

func NewMarkdownJournal(root string) MarkdownJournal {
	return MarkdownJournal{root: root}
}

func (j MarkdownJournal) Write(_ context.Context, reflection domain.Reflection, challenge domain.ChallengeInfo) (string, error) {
	dir := filepath.Join(j.root, slug.Make(reflection.ChallengeID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}
	created := reflection.CreatedAt.UTC()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", created.Format("2006-01-02"), slug.Make(reflection.ID)))

	meta := map[string]any{
		"reflection_id":   reflection.ID,
		"challenge_id":    reflection.ChallengeID,
		"challenge_title": challenge.Title,
		"points":          challenge.Points,
		"created_at":      created.Format(time.RFC3339),
	}
	if reflection.SessionID != "" {
		meta["session_id"] = reflection.SessionID
	}

	note := markdown.Note{Body: fmt.Sprintf("# %s\n\n", challenge.Title)}
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if note, err = markdown.Parse(string(existing)); err != nil {
			return "", fmt.Errorf("read journal entry %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read journal entry: %w", err)
	}
	note.Meta = meta
	note.Body = answersBlock.Replace(note.Body, renderAnswers(reflection.Answers, challenge.ReflectionQuestions))

	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write journal entry: %w", err)
	}
	return path, nil
}

// renderAnswers lists catalog questions in catalog order, then any others
// alphabetically.
func renderAnswers(answers map[string]string, questions []string) string {
	seen := map[string]bool{}
	order := make([]string, 0, len(answers))
	for _, q := range questions {
		if _, ok := answers[q]; ok && !seen[q] {
			order = append(order, q)
			seen[q] = true
		}
	}
	var rest []string
	for q := range answers {
		if !seen[q] {
			rest = append(rest, q)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var b strings.Builder
	for i, q := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n", q, answers[q])
	}
	return strings.TrimSuffix(b.String(), "\n")
}
