package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medical-assessment/internal/assessment"

	"go.uber.org/zap"
)

type Service interface {
	// Save replaces the owner's answers of kind. A question id given twice
	// keeps its first position and its last answer.
	Save(ctx context.Context, owner string, kind Kind, items []Item) error
	Get(ctx context.Context, owner string, kind Kind) ([]Answer, error)
	// StoredAnswers returns profile answers followed by medical history.
	StoredAnswers(ctx context.Context, owner string) ([]assessment.Answer, error)
}

type service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo: repo,
		log:  log.Named("profile"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Save(ctx context.Context, owner string, kind Kind, items []Item) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
	if len(items) == 0 {
		return ErrEmpty
	}

	now := s.now()
	answers := make([]Answer, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		id := strings.TrimSpace(item.QuestionID)
		if id == "" {
			return fmt.Errorf("%w: item %d: question_id is required", ErrInvalid, i)
		}
		payload, err := assessment.DecodePayload(item.AnswerJSON)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, id, err)
		}
		text := strings.TrimSpace(item.QuestionText)
		if text == "" {
			text = id
		}
		a := Answer{
			QuestionID:   id,
			QuestionText: text,
			Raw:          item.AnswerJSON,
			Value:        assessment.Normalize(payload),
			CreatedAt:    now,
		}
		if j, ok := index[id]; ok {
			answers[j] = a
			continue
		}
		index[id] = len(answers)
		answers = append(answers, a)
	}

	if err := s.repo.Replace(ctx, owner, kind, answers); err != nil {
		return err
	}
	s.log.Info("onboarding answers stored",
		zap.String("owner", owner),
		zap.String("kind", string(kind)),
		zap.Int("answers", len(answers)),
	)
	return nil
}

func (s *service) Get(ctx context.Context, owner string, kind Kind) ([]Answer, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
	return s.repo.List(ctx, owner, kind)
}

func (s *service) StoredAnswers(ctx context.Context, owner string) ([]assessment.Answer, error) {
	var out []assessment.Answer
	for _, kind := range []Kind{KindProfile, KindMedical} {
		answers, err := s.repo.List(ctx, owner, kind)
		if err != nil {
			return nil, err
		}
		for _, a := range answers {
			out = append(out, assessment.Answer{
				QuestionID:   a.QuestionID,
				QuestionText: a.QuestionText,
				Raw:          a.Raw,
				Value:        a.Value,
				CreatedAt:    a.CreatedAt,
				UpdatedAt:    a.CreatedAt,
			})
		}
	}
	return out, nil
}
