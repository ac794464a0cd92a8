package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, owner, reportID string) (*Record, error)
	// List returns the owner's reports, newest first.
	List(ctx context.Context, owner string) ([]Record, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, owner, session_id, assessment_topic, urgency_level, report_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ReportID, rec.Owner, rec.SessionID, rec.AssessmentTopic, rec.UrgencyLevel, data, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

const reportColumns = `report_id, owner, session_id, assessment_topic, urgency_level, report_data, created_at`

func (r *postgresRepo) Get(ctx context.Context, owner, reportID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE report_id = $1 AND owner = $2`,
		reportID, owner,
	)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rec, nil
}

func (r *postgresRepo) List(ctx context.Context, owner string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE owner = $1 ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (*Record, error) {
	var (
		rec   Record
		topic sql.NullString
		level sql.NullString
		data  []byte
	)
	if err := scan(&rec.ReportID, &rec.Owner, &rec.SessionID, &topic, &level, &data, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.AssessmentTopic, rec.UrgencyLevel = topic.String, level.String
	if err := json.Unmarshal(data, &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report_data: %w", err)
	}
	return &rec, nil
}

type sqliteRepo struct {
	db *sql.DB
}

// sqliteTimeLayout is fixed width so created_at sorts chronologically as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewSQLiteRepository creates the reports table if needed.
func NewSQLiteRepository(db *sql.DB) (Repository, error) {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS reports (
		report_id         TEXT PRIMARY KEY,
		owner             TEXT NOT NULL,
		session_id        TEXT NOT NULL,
		assessment_topic  TEXT,
		urgency_level     TEXT,
		report_data       TEXT NOT NULL,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports(owner, created_at);
	`)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, owner, session_id, assessment_topic, urgency_level, report_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ReportID, rec.Owner, rec.SessionID.String(), rec.AssessmentTopic, rec.UrgencyLevel,
		string(data), rec.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (r *sqliteRepo) Get(ctx context.Context, owner, reportID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE report_id = ? AND owner = ?`,
		reportID, owner,
	)
	rec, err := scanSQLiteRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rec, nil
}

func (r *sqliteRepo) List(ctx context.Context, owner string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE owner = ? ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanSQLiteRecord(scan func(dest ...any) error) (*Record, error) {
	var (
		rec          Record
		sessionID    string
		topic, level sql.NullString
		data         string
		createdAt    string
	)
	if err := scan(&rec.ReportID, &rec.Owner, &sessionID, &topic, &level, &data, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if rec.SessionID, err = uuid.Parse(sessionID); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	rec.AssessmentTopic, rec.UrgencyLevel = topic.String, level.String
	if err := json.Unmarshal([]byte(data), &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report_data: %w", err)
	}
	return &rec, nil
}

type MemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reports: make(map[string]Record)}
}

func (r *MemoryRepository) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[rec.ReportID]; exists {
		return fmt.Errorf("save report: %s already exists", rec.ReportID)
	}
	r.reports[rec.ReportID] = *rec
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, owner, reportID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.reports[reportID]
	if !ok || rec.Owner != owner {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) List(_ context.Context, owner string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.reports {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ReportID > out[j].ReportID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
