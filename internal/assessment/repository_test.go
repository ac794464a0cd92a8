package assessment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, Repository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRepository(db)
}

var sessionCols = []string{"session_id", "owner", "status", "phase", "detected_symptom", "started_at", "completed_at"}

func TestPostgresRepo_GetActiveSession(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT session_id, owner, status, phase, detected_symptom, started_at, completed_at FROM assessment_sessions`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(id.String(), "user-1", "active", "followup", "headache", started, nil))

	s, err := repo.GetActiveSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, PhaseFollowup, s.Phase)
	assert.Equal(t, "headache", s.DetectedSymptom)
	assert.Equal(t, started, s.StartedAt)
	assert.Nil(t, s.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetSession_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM assessment_sessions WHERE session_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := repo.GetSession(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_CreateSession_ExpiresPrevious(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE assessment_sessions SET status = 'expired' WHERE owner = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO assessment_sessions`).
		WithArgs(sqlmock.AnyArg(), "user-1", StatusActive, PhaseQuestionnaire, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := repo.CreateSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, PhaseQuestionnaire, s.Phase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdatePhase(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE assessment_sessions\s+SET phase = \$2, detected_symptom = COALESCE\(NULLIF\(\$3, ''\), detected_symptom\)`).
		WithArgs(id, PhaseFollowup, "headache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePhase(context.Background(), id, PhaseFollowup, "headache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Complete_NotActive(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE assessment_sessions SET status = 'completed'`).
		WithArgs(id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM assessment_sessions WHERE session_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(id.String(), "user-1", "expired", "questionnaire", nil, time.Now(), nil))

	err := repo.Complete(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Expire_Missing(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE assessment_sessions SET status = 'expired'`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM assessment_sessions WHERE session_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	err := repo.Expire(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpsertAndGetAnswers(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	id := uuid.New()
	raw := []byte(`{"type":"text","value":"bad headache"}`)
	mock.ExpectExec(`INSERT INTO assessment_session_answers`).
		WithArgs(id, "q_current_ailment", "What brings you here today?", raw, "bad headache", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertAnswer(context.Background(), id, Answer{
		QuestionID:   "q_current_ailment",
		QuestionText: "What brings you here today?",
		Raw:          raw,
		Value:        "bad headache",
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT question_id, question_text, answer_json, answer_value, created_at, updated_at`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"question_id", "question_text", "answer_json", "answer_value", "created_at", "updated_at"}).
			AddRow("q_gender", "What is your gender?", []byte(`{"type":"single_choice","selected_option_label":"Female"}`), "Female", now, now).
			AddRow("q_current_ailment", "What brings you here today?", raw, "bad headache", now, now))

	answers, err := repo.GetAnswers(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "q_gender", answers[0].QuestionID)
	assert.Equal(t, "Female", answers[0].Value)
	assert.JSONEq(t, string(raw), string(answers[1].Raw))
	assert.NoError(t, mock.ExpectationsWereMet())
}
