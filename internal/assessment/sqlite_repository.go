package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sqliteRepo stores sessions in a single SQLite file. Used by the CLI and by
// single-binary deployments. Timestamps are fixed-width UTC text so that
// ORDER BY on them is chronological.
type sqliteRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates the schema if needed. db must be opened with
// the "sqlite" driver.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	r := &sqliteRepo{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *sqliteRepo) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessment_sessions (
		session_id        TEXT PRIMARY KEY,
		owner             TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'active',
		phase             TEXT NOT NULL DEFAULT 'questionnaire',
		detected_symptom  TEXT,
		started_at        TEXT NOT NULL,
		completed_at      TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_assessment_sessions_owner_active
		ON assessment_sessions(owner) WHERE status = 'active';

	CREATE TABLE IF NOT EXISTS assessment_session_answers (
		session_id     TEXT NOT NULL REFERENCES assessment_sessions(session_id) ON DELETE CASCADE,
		question_id    TEXT NOT NULL,
		question_text  TEXT NOT NULL,
		answer_json    TEXT NOT NULL,
		answer_value   TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (session_id, question_id)
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func (r *sqliteRepo) scan(row rowScanner) (*Session, error) {
	var (
		s           Session
		id          string
		symptom     sql.NullString
		startedAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(&id, &s.Owner, &s.Status, &s.Phase, &symptom, &startedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session id %q: %w", id, err)
	}
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("completed_at: %w", err)
		}
		s.CompletedAt = &t
	}
	s.DetectedSymptom = symptom.String
	return &s, nil
}

func (r *sqliteRepo) GetActiveSession(ctx context.Context, owner string) (*Session, error) {
	s, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM assessment_sessions
		 WHERE owner = ? AND status = 'active'
		 ORDER BY started_at DESC LIMIT 1`, owner))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, err
}

func (r *sqliteRepo) CreateSession(ctx context.Context, owner string) (*Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'expired' WHERE owner = ? AND status = 'active'`, owner,
	); err != nil {
		return nil, fmt.Errorf("expire stale sessions: %w", err)
	}
	s := &Session{
		ID:        uuid.New(),
		Owner:     owner,
		Status:    StatusActive,
		Phase:     PhaseQuestionnaire,
		StartedAt: r.now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessment_sessions (session_id, owner, status, phase, started_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID.String(), s.Owner, string(s.Status), string(s.Phase), formatTime(s.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *sqliteRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM assessment_sessions WHERE session_id = ?`, id.String()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, err
}

func (r *sqliteRepo) UpdatePhase(ctx context.Context, id uuid.UUID, phase Phase, symptom string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions
		 SET phase = ?, detected_symptom = COALESCE(NULLIF(?, ''), detected_symptom)
		 WHERE session_id = ?`,
		string(phase), symptom, id.String(),
	)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return expectRow(res, ErrNotFound)
}

func (r *sqliteRepo) Complete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'completed', completed_at = ?
		 WHERE session_id = ? AND status = 'active'`,
		formatTime(r.now()), id.String(),
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return r.closed(ctx, id, res)
}

func (r *sqliteRepo) Expire(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'expired' WHERE session_id = ? AND status = 'active'`,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return r.closed(ctx, id, res)
}

func (r *sqliteRepo) closed(ctx context.Context, id uuid.UUID, res sql.Result) error {
	if err := expectRow(res, ErrNotActive); !errors.Is(err, ErrNotActive) {
		return err
	}
	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	return ErrNotActive
}

func (r *sqliteRepo) UpsertAnswer(ctx context.Context, sessionID uuid.UUID, a Answer) error {
	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assessment_session_answers
			(session_id, question_id, question_text, answer_json, answer_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, question_id) DO UPDATE SET
			question_text = excluded.question_text,
			answer_json = excluded.answer_json,
			answer_value = excluded.answer_value,
			updated_at = excluded.updated_at`,
		sessionID.String(), a.QuestionID, a.QuestionText, string(a.Raw), a.Value, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (r *sqliteRepo) GetAnswers(ctx context.Context, sessionID uuid.UUID) ([]Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question_id, question_text, answer_json, answer_value, created_at, updated_at
		 FROM assessment_session_answers
		 WHERE session_id = ?
		 ORDER BY created_at ASC, question_id ASC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var (
			a                Answer
			raw              string
			created, updated string
		)
		if err := rows.Scan(&a.QuestionID, &a.QuestionText, &raw, &a.Value, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Raw = []byte(raw)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		if a.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("updated_at: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	return answers, nil
}
