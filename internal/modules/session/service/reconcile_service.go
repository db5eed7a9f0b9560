package service

import (
	"context"
	"fmt"
	"log/slog"

	"habitkit/internal/modules/session/domain"
	sessionout "habitkit/internal/modules/session/port/out"
)

// Reconciler repairs sessions left active by a completion whose
// deactivation never landed. A reflection pointing at a session is proof
// the attempt was completed.
type Reconciler struct {
	sessions    sessionout.SessionStore
	reflections sessionout.ReflectionStore
	logger      *slog.Logger
}

func NewReconciler(sessions sessionout.SessionStore, reflections sessionout.ReflectionStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{sessions: sessions, reflections: reflections, logger: logger}
}

// InProgress returns the user's genuinely in-progress sessions and how many
// completed-in-substance rows it deleted on the way.
func (r *Reconciler) InProgress(ctx context.Context, userID string) ([]domain.Session, int, error) {
	sessions, err := r.sessions.ListInProgress(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list in-progress sessions: %w", err)
	}
	if len(sessions) == 0 {
		return []domain.Session{}, 0, nil
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	reflections, err := r.reflections.ListBySessionIDs(ctx, userID, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list reflections for sessions: %w", err)
	}
	completed := domain.Completed(reflections)
	if len(completed) == 0 {
		return sessions, 0, nil
	}

	remaining := make([]domain.Session, 0, len(sessions))
	orphaned := make([]string, 0, len(completed))
	for _, s := range sessions {
		if _, done := completed[s.ID]; done {
			orphaned = append(orphaned, s.ID)
			continue
		}
		remaining = append(remaining, s)
	}
	if _, err := r.sessions.DeleteByIDs(ctx, userID, orphaned); err != nil {
		return nil, 0, fmt.Errorf("delete completed sessions: %w", err)
	}
	r.logger.Info("reconciled completed sessions", "user_id", userID, "count", len(orphaned), "session_ids", orphaned)
	return remaining, len(orphaned), nil
}
