package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"habitkit/internal/modules/session/domain"
	sessionout "habitkit/internal/modules/session/port/out"
	"habitkit/internal/platform/clock"
	apperrors "habitkit/internal/platform/errors"
)

// StartOutcome says how Start obtained the returned session.
type StartOutcome string

const (
	StartCreated    StartOutcome = "created"
	StartExisting   StartOutcome = "existing"
	StartJoinedRace StartOutcome = "joined_race"
)

type StartResult struct {
	Session domain.Session
	Outcome StartOutcome
}

type CompleteResult struct {
	Reflection         domain.Reflection
	SessionID          string
	SessionDeactivated bool
}

// LifecycleService decides which single-row writes implement start, complete
// and cancel against a store without multi-statement transactions. The
// store's (user, challenge, is_active) uniqueness constraint is the only
// serialization point.
type LifecycleService struct {
	clock       clock.Clock
	sessions    sessionout.SessionStore
	reflections sessionout.ReflectionStore
	logger      *slog.Logger
}

func NewLifecycleService(clk clock.Clock, sessions sessionout.SessionStore, reflections sessionout.ReflectionStore, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{clock: clk, sessions: sessions, reflections: reflections, logger: logger}
}

func (s *LifecycleService) Start(ctx context.Context, userID, challengeID string) (StartResult, error) {
	if active, ok, err := s.findActive(ctx, userID, challengeID); err != nil {
		return StartResult{}, err
	} else if ok {
		return StartResult{Session: active, Outcome: StartExisting}, nil
	}

	removed, err := s.sessions.DeleteStale(ctx, userID, challengeID)
	if err != nil {
		return StartResult{}, fmt.Errorf("clear stale sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("removed stale sessions before start",
			"user_id", userID, "challenge_id", challengeID, "count", removed)
	}

	created, err := s.sessions.Insert(ctx, domain.Session{
		UserID:      userID,
		ChallengeID: challengeID,
		StartedAt:   s.clock.Now(),
		IsActive:    true,
	})
	if err == nil {
		return StartResult{Session: created, Outcome: StartCreated}, nil
	}
	if !errors.Is(err, apperrors.ErrUniqueViolation) {
		return StartResult{}, fmt.Errorf("insert session: %w", err)
	}

	// A concurrent start owns the key; converge on its row.
	winner, ok, err := s.findActive(ctx, userID, challengeID)
	if err != nil {
		return StartResult{}, err
	}
	if !ok {
		return StartResult{}, fmt.Errorf("start %s: active session vanished after unique violation: %w", challengeID, apperrors.ErrConflict)
	}
	s.logger.Debug("start joined concurrent session",
		"user_id", userID, "challenge_id", challengeID, "session_id", winner.ID)
	return StartResult{Session: winner, Outcome: StartJoinedRace}, nil
}

// Complete records the reflection first and deactivates the session second.
// A crash or failure between the two leaves an active-looking session that
// already has a reflection; ListInProgress repairs that on the next read.
func (s *LifecycleService) Complete(ctx context.Context, userID, challengeID string, postedAnonymously bool, answers map[string]string) (CompleteResult, error) {
	cleaned := domain.CleanAnswers(answers)
	if len(cleaned) == 0 {
		return CompleteResult{}, fmt.Errorf("at least one reflection answer is required: %w", apperrors.ErrValidationFailed)
	}

	if _, err := s.sessions.DeleteInactive(ctx, userID, challengeID); err != nil {
		return CompleteResult{}, fmt.Errorf("clear inactive sessions: %w", err)
	}

	active, found, err := s.findActive(ctx, userID, challengeID)
	if err != nil {
		s.logger.Warn("could not locate active session, recording reflection unlinked",
			"user_id", userID, "challenge_id", challengeID, "error", err)
		found = false
	}

	now := s.clock.Now()
	reflection := domain.Reflection{
		UserID:      userID,
		ChallengeID: challengeID,
		Answers:     cleaned,
		CreatedAt:   now,
	}
	if found {
		reflection.SessionID = active.ID
	}
	saved, err := s.reflections.Insert(ctx, reflection)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("record reflection: %w", err)
	}
	result := CompleteResult{Reflection: saved}

	if !found {
		s.logger.Info("no active session to deactivate",
			"user_id", userID, "challenge_id", challengeID, "reflection_id", saved.ID)
		return result, nil
	}
	result.SessionID = active.ID

	applied, err := s.sessions.MarkCompleted(ctx, userID, active.ID, now, postedAnonymously)
	if err != nil {
		s.logger.Warn("session deactivation failed, left for reconciliation",
			"user_id", userID, "challenge_id", challengeID, "session_id", active.ID, "error", err)
		return result, nil
	}
	if !applied {
		s.logger.Info("session already deactivated by another completion",
			"user_id", userID, "challenge_id", challengeID, "session_id", active.ID)
	}
	result.SessionDeactivated = applied
	return result, nil
}

// Cancel deletes the active row; a missing row is not an error.
func (s *LifecycleService) Cancel(ctx context.Context, userID, challengeID string) (bool, error) {
	removed, err := s.sessions.DeleteActive(ctx, userID, challengeID)
	if err != nil {
		return false, fmt.Errorf("cancel session: %w", err)
	}
	return removed > 0, nil
}

func (s *LifecycleService) GetActive(ctx context.Context, userID, challengeID string) (domain.Session, bool, error) {
	return s.findActive(ctx, userID, challengeID)
}

func (s *LifecycleService) findActive(ctx context.Context, userID, challengeID string) (domain.Session, bool, error) {
	rows, err := s.sessions.FindActive(ctx, userID, challengeID)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("find active session: %w", err)
	}
	if len(rows) > 1 {
		s.logger.Warn("multiple active sessions for one challenge",
			"user_id", userID, "challenge_id", challengeID, "count", len(rows))
	}
	active, ok := domain.Latest(rows)
	return active, ok, nil
}
