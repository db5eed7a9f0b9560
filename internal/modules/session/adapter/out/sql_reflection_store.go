package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"habitkit/internal/modules/session/domain"
	sessionout "habitkit/internal/modules/session/port/out"
	"habitkit/internal/platform/id"
	"habitkit/internal/platform/sqldb"
)

var reflectionSchema = map[sqldb.Dialect][]string{
	sqldb.SQLite: {
		`CREATE TABLE IF NOT EXISTS reflections (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  challenge_id TEXT NOT NULL,
  session_id TEXT,
  answers TEXT NOT NULL,
  created_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS reflections_user_session ON reflections (user_id, session_id)`,
	},
	sqldb.Postgres: {
		`CREATE TABLE IF NOT EXISTS reflections (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  challenge_id TEXT NOT NULL,
  session_id TEXT,
  answers JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS reflections_user_session ON reflections (user_id, session_id)`,
	},
}

const reflectionColumns = `id, user_id, challenge_id, session_id, answers, created_at`

type SQLReflectionStore struct {
	db  *sqldb.DB
	ids id.Generator
}

func NewSQLReflectionStore(ctx context.Context, db *sqldb.DB, ids id.Generator) (*SQLReflectionStore, error) {
	if err := ensureSchema(ctx, db, reflectionSchema); err != nil {
		return nil, fmt.Errorf("create reflection schema: %w", err)
	}
	return &SQLReflectionStore{db: db, ids: ids}, nil
}

var _ sessionout.ReflectionStore = (*SQLReflectionStore)(nil)

func (s *SQLReflectionStore) Insert(ctx context.Context, reflection domain.Reflection) (domain.Reflection, error) {
	if reflection.ID == "" {
		reflection.ID = s.ids.New()
	}
	reflection.CreatedAt = reflection.CreatedAt.UTC()
	answers, err := json.Marshal(reflection.Answers)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("encode answers: %w", err)
	}
	var sessionID any
	if reflection.SessionID != "" {
		sessionID = reflection.SessionID
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO reflections (`+reflectionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		reflection.ID,
		reflection.UserID,
		reflection.ChallengeID,
		sessionID,
		string(answers),
		s.db.EncodeTime(reflection.CreatedAt),
	)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("insert reflection: %w", err)
	}
	return reflection, nil
}

func (s *SQLReflectionStore) ListBySessionIDs(ctx context.Context, userID string, sessionIDs []string) ([]domain.Reflection, error) {
	if len(sessionIDs) == 0 {
		return []domain.Reflection{}, nil
	}
	args := make([]any, 0, len(sessionIDs)+1)
	args = append(args, userID)
	for _, v := range sessionIDs {
		args = append(args, v)
	}
	return s.query(ctx, `SELECT `+reflectionColumns+` FROM reflections
WHERE user_id = ? AND session_id IN (`+sqldb.Placeholders(len(sessionIDs))+`)
ORDER BY created_at`, args...)
}

func (s *SQLReflectionStore) List(ctx context.Context, userID, challengeID string) ([]domain.Reflection, error) {
	if challengeID == "" {
		return s.query(ctx, `SELECT `+reflectionColumns+` FROM reflections WHERE user_id = ? ORDER BY created_at`, userID)
	}
	return s.query(ctx, `SELECT `+reflectionColumns+` FROM reflections
WHERE user_id = ? AND challenge_id = ? ORDER BY created_at`, userID, challengeID)
}

func (s *SQLReflectionStore) query(ctx context.Context, query string, args ...any) ([]domain.Reflection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reflections: %w", err)
	}
	defer rows.Close()

	out := []domain.Reflection{}
	for rows.Next() {
		var (
			r         domain.Reflection
			sessionID sql.NullString
			answers   []byte
			created   string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChallengeID, &sessionID, &answers, &created); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", sqldb.Classify(err))
		}
		r.SessionID = sessionID.String
		if err := json.Unmarshal(answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for reflection %s: %w", r.ID, err)
		}
		if r.CreatedAt, err = sqldb.DecodeTime(created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reflections: %w", sqldb.Classify(err))
	}
	return out, nil
}
