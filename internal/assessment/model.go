package assessment

import (
	"encoding/json"
	"time"

	"medical-assessment/internal/catalog"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

type Phase string

const (
	PhaseQuestionnaire Phase = "questionnaire"
	PhaseFollowup      Phase = "followup"
)

// Session is the persisted state of one assessment run.
type Session struct {
	ID              uuid.UUID  `json:"session_id"`
	Owner           string     `json:"owner"`
	Status          Status     `json:"status"`
	Phase           Phase      `json:"phase"`
	DetectedSymptom string     `json:"detected_symptom,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (s *Session) IsActive() bool { return s.Status == StatusActive }

// Answer is the stored answer to one question of a session.
type Answer struct {
	QuestionID   string          `json:"question_id"`
	QuestionText string          `json:"question_text"`
	Raw          json.RawMessage `json:"answer_json"`
	Value        string          `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// answerValues indexes extracted answer values by question id.
func answerValues(answers []Answer) map[string]string {
	m := make(map[string]string, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a.Value
	}
	return m
}

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Step is what the service hands back after every lifecycle call: the session
// as persisted and either the next question or completion.
type Step struct {
	Session   Session           `json:"session"`
	Question  *catalog.Question `json:"question,omitempty"`
	Completed bool              `json:"completed"`
	Progress  Progress          `json:"progress"`
	Match     *SymptomMatch     `json:"symptom,omitempty"`
	Answers   []Answer          `json:"stored_answers,omitempty"`
	Resumed   bool              `json:"resumed"`
}

// QA is one question with its normalized answer, in transcript order.
type QA struct {
	Question catalog.Question `json:"question"`
	Answer   string           `json:"answer"`
}

// Transcript is a session's answers in catalog order. ChiefComplaint and
// Gender repeat the answers to the designated questions.
type Transcript struct {
	Session        Session          `json:"session"`
	Responses      []QA             `json:"responses"`
	Symptom        *catalog.Symptom `json:"symptom,omitempty"`
	Completed      bool             `json:"completed"`
	ChiefComplaint string           `json:"chief_complaint,omitempty"`
	Gender         string           `json:"gender,omitempty"`
}

// Answer looks up a normalized answer by question id.
func (t *Transcript) Answer(questionID string) (string, bool) {
	for _, qa := range t.Responses {
		if qa.Question.ID == questionID {
			return qa.Answer, true
		}
	}
	return "", false
}
