package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habitkit/internal/modules/session/domain"
	sessionout "habitkit/internal/modules/session/port/out"
	"habitkit/internal/platform/id"
	"habitkit/internal/platform/sqldb"
)

var sessionSchema = map[sqldb.Dialect][]string{
	sqldb.SQLite: {
		`CREATE TABLE IF NOT EXISTS challenge_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  challenge_id TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  posted_anonymously INTEGER NOT NULL DEFAULT 0,
  UNIQUE (user_id, challenge_id, is_active)
)`,
		`CREATE INDEX IF NOT EXISTS challenge_sessions_user_active ON challenge_sessions (user_id, is_active)`,
	},
	sqldb.Postgres: {
		`CREATE TABLE IF NOT EXISTS challenge_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  challenge_id TEXT NOT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  completed_at TIMESTAMPTZ,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  posted_anonymously BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE (user_id, challenge_id, is_active)
)`,
		`CREATE INDEX IF NOT EXISTS challenge_sessions_user_active ON challenge_sessions (user_id, is_active)`,
	},
}

const sessionColumns = `id, user_id, challenge_id, started_at, completed_at, is_active, posted_anonymously`

type SQLSessionStore struct {
	db  *sqldb.DB
	ids id.Generator
}

func NewSQLSessionStore(ctx context.Context, db *sqldb.DB, ids id.Generator) (*SQLSessionStore, error) {
	store := &SQLSessionStore{db: db, ids: ids}
	if err := ensureSchema(ctx, db, sessionSchema); err != nil {
		return nil, fmt.Errorf("create session schema: %w", err)
	}
	return store, nil
}

var _ sessionout.SessionStore = (*SQLSessionStore)(nil)

func ensureSchema(ctx context.Context, db *sqldb.DB, ddl map[sqldb.Dialect][]string) error {
	stmts, ok := ddl[db.Dialect()]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", db.Dialect())
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLSessionStore) FindActive(ctx context.Context, userID, challengeID string) ([]domain.Session, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM challenge_sessions
WHERE user_id = ? AND challenge_id = ? AND is_active = ? AND completed_at IS NULL
ORDER BY started_at DESC`, userID, challengeID, true)
}

func (s *SQLSessionStore) ListInProgress(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM challenge_sessions
WHERE user_id = ? AND is_active = ? AND completed_at IS NULL
ORDER BY started_at DESC`, userID, true)
}

func (s *SQLSessionStore) Insert(ctx context.Context, session domain.Session) (domain.Session, error) {
	if session.ID == "" {
		session.ID = s.ids.New()
	}
	session.StartedAt = session.StartedAt.UTC()
	var completed any
	if session.CompletedAt != nil {
		completed = s.db.EncodeTime(*session.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO challenge_sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.ChallengeID,
		s.db.EncodeTime(session.StartedAt),
		completed,
		session.IsActive,
		session.PostedAnonymously,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *SQLSessionStore) DeleteStale(ctx context.Context, userID, challengeID string) (int64, error) {
	return s.exec(ctx, "delete stale sessions", `DELETE FROM challenge_sessions
WHERE user_id = ? AND challenge_id = ? AND (completed_at IS NOT NULL OR is_active = ?)`, userID, challengeID, false)
}

func (s *SQLSessionStore) DeleteInactive(ctx context.Context, userID, challengeID string) (int64, error) {
	return s.exec(ctx, "delete inactive sessions", `DELETE FROM challenge_sessions
WHERE user_id = ? AND challenge_id = ? AND is_active = ?`, userID, challengeID, false)
}

func (s *SQLSessionStore) DeleteActive(ctx context.Context, userID, challengeID string) (int64, error) {
	return s.exec(ctx, "delete active session", `DELETE FROM challenge_sessions
WHERE user_id = ? AND challenge_id = ? AND is_active = ?`, userID, challengeID, true)
}

func (s *SQLSessionStore) MarkCompleted(ctx context.Context, userID, sessionID string, completedAt time.Time, postedAnonymously bool) (bool, error) {
	n, err := s.exec(ctx, "mark session completed", `UPDATE challenge_sessions
SET is_active = ?, completed_at = ?, posted_anonymously = ?
WHERE id = ? AND user_id = ? AND is_active = ?`,
		false, s.db.EncodeTime(completedAt), postedAnonymously, sessionID, userID, true)
	return n > 0, err
}

func (s *SQLSessionStore) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, v := range ids {
		args = append(args, v)
	}
	return s.exec(ctx, "delete sessions by id", `DELETE FROM challenge_sessions
WHERE user_id = ? AND id IN (`+sqldb.Placeholders(len(ids))+`)`, args...)
}

func (s *SQLSessionStore) exec(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", what, err)
	}
	return n, nil
}

func (s *SQLSessionStore) query(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		var (
			session   domain.Session
			started   string
			completed sql.NullString
		)
		if err := rows.Scan(&session.ID, &session.UserID, &session.ChallengeID, &started, &completed, &session.IsActive, &session.PostedAnonymously); err != nil {
			return nil, fmt.Errorf("scan session: %w", sqldb.Classify(err))
		}
		if session.StartedAt, err = sqldb.DecodeTime(started); err != nil {
			return nil, err
		}
		if completed.Valid {
			t, err := sqldb.DecodeTime(completed.String)
			if err != nil {
				return nil, err
			}
			session.CompletedAt = &t
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", sqldb.Classify(err))
	}
	return out, nil
}
