package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the answer store the lifecycle service runs on. Lookups of
// missing rows return ErrNotFound; Complete and Expire on a session that is no
// longer active return ErrNotActive.
type Repository interface {
	GetActiveSession(ctx context.Context, owner string) (*Session, error)
	// CreateSession expires any active session of owner and starts a new one.
	CreateSession(ctx context.Context, owner string) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	// UpdatePhase sets the phase; an empty symptom keeps the recorded one.
	UpdatePhase(ctx context.Context, id uuid.UUID, phase Phase, symptom string) error
	Complete(ctx context.Context, id uuid.UUID) error
	Expire(ctx context.Context, id uuid.UUID) error
	UpsertAnswer(ctx context.Context, sessionID uuid.UUID, a Answer) error
	GetAnswers(ctx context.Context, sessionID uuid.UUID) ([]Answer, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const sessionColumns = `session_id, owner, status, phase, detected_symptom, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s           Session
		symptom     sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Owner, &s.Status, &s.Phase, &symptom, &s.StartedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.DetectedSymptom = symptom.String
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func (r *postgresRepo) GetActiveSession(ctx context.Context, owner string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM assessment_sessions
		WHERE owner = $1 AND status = 'active'
		ORDER BY started_at DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, owner))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, err
}

func (r *postgresRepo) CreateSession(ctx context.Context, owner string) (*Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'expired' WHERE owner = $1 AND status = 'active'`,
		owner,
	); err != nil {
		return nil, fmt.Errorf("expire stale sessions: %w", err)
	}

	s := &Session{
		ID:        uuid.New(),
		Owner:     owner,
		Status:    StatusActive,
		Phase:     PhaseQuestionnaire,
		StartedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessment_sessions (session_id, owner, status, phase, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Owner, s.Status, s.Phase, s.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *postgresRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM assessment_sessions WHERE session_id = $1`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, err
}

func (r *postgresRepo) UpdatePhase(ctx context.Context, id uuid.UUID, phase Phase, symptom string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions
		 SET phase = $2, detected_symptom = COALESCE(NULLIF($3, ''), detected_symptom)
		 WHERE session_id = $1`,
		id, phase, symptom,
	)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return expectRow(res, ErrNotFound)
}

func (r *postgresRepo) Complete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'completed', completed_at = $2
		 WHERE session_id = $1 AND status = 'active'`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return r.closed(ctx, id, res)
}

func (r *postgresRepo) Expire(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessment_sessions SET status = 'expired'
		 WHERE session_id = $1 AND status = 'active'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return r.closed(ctx, id, res)
}

// closed tells a missing session apart from one that was already terminal.
func (r *postgresRepo) closed(ctx context.Context, id uuid.UUID, res sql.Result) error {
	if err := expectRow(res, ErrNotActive); !errors.Is(err, ErrNotActive) {
		return err
	}
	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	return ErrNotActive
}

func (r *postgresRepo) UpsertAnswer(ctx context.Context, sessionID uuid.UUID, a Answer) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assessment_session_answers
			(session_id, question_id, question_text, answer_json, answer_value, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE SET
			question_text = EXCLUDED.question_text,
			answer_json = EXCLUDED.answer_json,
			answer_value = EXCLUDED.answer_value,
			updated_at = EXCLUDED.updated_at`,
		sessionID, a.QuestionID, a.QuestionText, []byte(a.Raw), a.Value, now,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetAnswers(ctx context.Context, sessionID uuid.UUID) ([]Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question_id, question_text, answer_json, answer_value, created_at, updated_at
		 FROM assessment_session_answers
		 WHERE session_id = $1
		 ORDER BY created_at ASC, question_id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var (
			a   Answer
			raw []byte
		)
		if err := rows.Scan(&a.QuestionID, &a.QuestionText, &raw, &a.Value, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Raw = raw
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	return answers, nil
}

func expectRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
