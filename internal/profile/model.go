// Package profile stores the answers an owner gives once at onboarding, their
// personal profile and their medical history, and offers them back when an
// assessment starts so clients can pre-fill questions.
package profile

import (
	"encoding/json"
	"errors"
	"time"
)

type Kind string

const (
	KindProfile Kind = "profile"
	KindMedical Kind = "medical"
)

func (k Kind) Valid() bool { return k == KindProfile || k == KindMedical }

var (
	ErrEmpty   = errors.New("no answers provided")
	ErrInvalid = errors.New("invalid onboarding answer")
)

// Item is one answer as submitted at onboarding.
type Item struct {
	QuestionID   string          `json:"question_id"`
	QuestionText string          `json:"question_text"`
	AnswerJSON   json.RawMessage `json:"answer_json"`
}

// Answer is a stored onboarding answer. Value is the extracted answer text.
type Answer struct {
	QuestionID   string          `json:"question_id"`
	QuestionText string          `json:"question_text"`
	Raw          json.RawMessage `json:"answer_json"`
	Value        string          `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
}
