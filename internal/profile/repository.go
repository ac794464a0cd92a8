package profile

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Repository keeps one ordered answer list per owner and kind.
type Repository interface {
	// Replace swaps the owner's answers of kind for answers.
	Replace(ctx context.Context, owner string, kind Kind, answers []Answer) error
	// List returns the answers in submission order.
	List(ctx context.Context, owner string, kind Kind) ([]Answer, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Replace(ctx context.Context, owner string, kind Kind, answers []Answer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s answers: %w", kind, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM onboarding_answers WHERE owner = $1 AND kind = $2`, owner, string(kind),
	); err != nil {
		return fmt.Errorf("delete %s answers: %w", kind, err)
	}
	for i, a := range answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO onboarding_answers
				(owner, kind, position, question_id, question_text, answer_json, answer_value, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			owner, string(kind), i, a.QuestionID, a.QuestionText, string(a.Raw), a.Value, a.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert %s answer %s: %w", kind, a.QuestionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s answers: %w", kind, err)
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, owner string, kind Kind) ([]Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question_id, question_text, answer_json, answer_value, created_at
		 FROM onboarding_answers
		 WHERE owner = $1 AND kind = $2
		 ORDER BY position ASC`,
		owner, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s answers: %w", kind, err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var (
			a   Answer
			raw []byte
		)
		if err := rows.Scan(&a.QuestionID, &a.QuestionText, &raw, &a.Value, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s answer: %w", kind, err)
		}
		a.Raw = raw
		out = append(out, a)
	}
	return out, rows.Err()
}

type sqliteRepo struct {
	db *sql.DB
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewSQLiteRepository creates the onboarding table if needed.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS onboarding_answers (
		owner          TEXT NOT NULL,
		kind           TEXT NOT NULL,
		position       INTEGER NOT NULL,
		question_id    TEXT NOT NULL,
		question_text  TEXT NOT NULL,
		answer_json    TEXT NOT NULL,
		answer_value   TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		PRIMARY KEY (owner, kind, position)
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Replace(ctx context.Context, owner string, kind Kind, answers []Answer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s answers: %w", kind, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM onboarding_answers WHERE owner = ? AND kind = ?`, owner, string(kind),
	); err != nil {
		return fmt.Errorf("delete %s answers: %w", kind, err)
	}
	for i, a := range answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO onboarding_answers
				(owner, kind, position, question_id, question_text, answer_json, answer_value, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			owner, string(kind), i, a.QuestionID, a.QuestionText, string(a.Raw), a.Value,
			a.CreatedAt.UTC().Format(sqliteTimeLayout),
		); err != nil {
			return fmt.Errorf("insert %s answer %s: %w", kind, a.QuestionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s answers: %w", kind, err)
	}
	return nil
}

func (r *sqliteRepo) List(ctx context.Context, owner string, kind Kind) ([]Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question_id, question_text, answer_json, answer_value, created_at
		 FROM onboarding_answers
		 WHERE owner = ? AND kind = ?
		 ORDER BY position ASC`,
		owner, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s answers: %w", kind, err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var (
			a         Answer
			raw       string
			createdAt string
		)
		if err := rows.Scan(&a.QuestionID, &a.QuestionText, &raw, &a.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scan %s answer: %w", kind, err)
		}
		a.Raw = []byte(raw)
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type memoryKey struct {
	owner string
	kind  Kind
}

// MemoryRepository keeps onboarding answers in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	answers map[memoryKey][]Answer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{answers: make(map[memoryKey][]Answer)}
}

func (r *MemoryRepository) Replace(_ context.Context, owner string, kind Kind, answers []Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[memoryKey{owner, kind}] = append([]Answer(nil), answers...)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, owner string, kind Kind) ([]Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Answer(nil), r.answers[memoryKey{owner, kind}]...), nil
}
