package domain

import (
	"sort"
	"strings"
	"time"
)

// UnknownChallengeTitle labels in-progress sessions whose challenge is no
// longer in the catalog.
const UnknownChallengeTitle = "Unknown Challenge"

// Session is one user's attempt at one challenge.
type Session struct {
	ID                string
	UserID            string
	ChallengeID       string
	StartedAt         time.Time
	CompletedAt       *time.Time
	IsActive          bool
	PostedAnonymously bool
}

// InProgress reports the only state callers may show as "currently running".
func (s Session) InProgress() bool {
	return s.IsActive && s.CompletedAt == nil
}

// Reflection is the durable record of a completion. SessionID is a weak
// reference; the session row may be gone by the time it is read.
type Reflection struct {
	ID          string
	UserID      string
	ChallengeID string
	SessionID   string
	Answers     map[string]string
	CreatedAt   time.Time
}

// ChallengeInfo is the display metadata used to decorate listings.
type ChallengeInfo struct {
	ID                  string
	Title               string
	Points              int
	ReflectionQuestions []string
}

func PlaceholderChallenge(id string) ChallengeInfo {
	return ChallengeInfo{ID: id, Title: UnknownChallengeTitle}
}

// CleanAnswers trims questions and answers and drops entries without an
// answer.
func CleanAnswers(answers map[string]string) map[string]string {
	out := make(map[string]string, len(answers))
	for q, a := range answers {
		q = strings.TrimSpace(q)
		a = strings.TrimSpace(a)
		if q == "" || a == "" {
			continue
		}
		out[q] = a
	}
	return out
}

// Latest picks the most recently started session. Callers pass rows that
// should be unique; duplicates are tolerated rather than trusted.
func Latest(sessions []Session) (Session, bool) {
	if len(sessions) == 0 {
		return Session{}, false
	}
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})
	return sorted[0], true
}

// Completed returns the ids of sessions referenced by at least one
// reflection.
func Completed(reflections []Reflection) map[string]struct{} {
	out := map[string]struct{}{}
	for _, r := range reflections {
		if r.SessionID != "" {
			out[r.SessionID] = struct{}{}
		}
	}
	return out
}
