package out

import (
	"context"
	"time"

	"habitkit/internal/modules/session/domain"
)

// SessionStore is the remote session table. Every call is scoped to one
// user. Insert reports apperrors.ErrUniqueViolation when the
// (user, challenge, is_active) key is taken; unreachable stores report
// apperrors.ErrStoreUnavailable.
type SessionStore interface {
	// FindActive returns in-progress rows, newest first.
	FindActive(ctx context.Context, userID, challengeID string) ([]domain.Session, error)
	Insert(ctx context.Context, session domain.Session) (domain.Session, error)
	// DeleteStale removes rows for the pair that are not in progress.
	DeleteStale(ctx context.Context, userID, challengeID string) (int64, error)
	DeleteInactive(ctx context.Context, userID, challengeID string) (int64, error)
	DeleteActive(ctx context.Context, userID, challengeID string) (int64, error)
	// MarkCompleted deactivates the row only while it is still active and
	// reports whether this call applied the change.
	MarkCompleted(ctx context.Context, userID, sessionID string, completedAt time.Time, postedAnonymously bool) (bool, error)
	ListInProgress(ctx context.Context, userID string) ([]domain.Session, error)
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
}

type ReflectionStore interface {
	Insert(ctx context.Context, reflection domain.Reflection) (domain.Reflection, error)
	ListBySessionIDs(ctx context.Context, userID string, sessionIDs []string) ([]domain.Reflection, error)
	// List returns the user's reflections, oldest first; an empty
	// challengeID lists all challenges.
	List(ctx context.Context, userID, challengeID string) ([]domain.Reflection, error)
}

type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// Notifier delivers the payload-free "sessions changed" signal. It must not
// block the caller and has no error to report.
type Notifier interface {
	SessionsChanged(ctx context.Context, userID string)
}

type ChallengeLookup interface {
	Lookup(ctx context.Context, challengeID string) (domain.ChallengeInfo, bool, error)
}

type Recorder interface {
	ObserveOperation(operation, outcome string)
	ObserveReconciled(count int)
}

type JournalWriter interface {
	Write(ctx context.Context, reflection domain.Reflection, challenge domain.ChallengeInfo) (string, error)
}
