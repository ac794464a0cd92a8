package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"medical-assessment/internal/catalog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitRequest carries one answer as received from a client. QuestionText is
// only used for question ids the catalog does not know.
type SubmitRequest struct {
	QuestionID   string
	QuestionText string
	Payload      json.RawMessage
}

type Service interface {
	// Start resumes the owner's active session or opens a new one.
	Start(ctx context.Context, owner string) (*Step, error)
	SubmitAnswer(ctx context.Context, owner string, sessionID uuid.UUID, req SubmitRequest) (*Step, error)
	// Complete closes a session whose questions are all answered.
	Complete(ctx context.Context, owner string, sessionID uuid.UUID) error
	// End abandons a session in whatever phase it is in.
	End(ctx context.Context, owner string, sessionID uuid.UUID) error
	Current(ctx context.Context, owner string, sessionID uuid.UUID) (*Step, error)
	Transcript(ctx context.Context, owner string, sessionID uuid.UUID) (*Transcript, error)
	// Export renders the transcript as an xlsx workbook.
	Export(ctx context.Context, owner string, sessionID uuid.UUID) ([]byte, error)
	DetectSymptom(text string) *SymptomMatch
}

// StoredAnswerSource supplies answers an owner gave outside any session, such
// as their onboarding profile. Start returns them so clients can pre-fill.
type StoredAnswerSource interface {
	StoredAnswers(ctx context.Context, owner string) ([]Answer, error)
}

type Option func(*service)

func WithStoredAnswers(src StoredAnswerSource) Option {
	return func(s *service) { s.stored = src }
}

type service struct {
	repo     Repository
	resolver *Resolver
	locker   Locker
	events   EventPublisher
	stored   StoredAnswerSource
	log      *zap.Logger
}

// NewService wires the lifecycle operations. A nil locker falls back to an
// in-process one, a nil publisher drops events and a nil logger is silent.
func NewService(repo Repository, resolver *Resolver, locker Locker, events EventPublisher, log *zap.Logger, opts ...Option) Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if events == nil {
		events = NopPublisher()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &service{
		repo:     repo,
		resolver: resolver,
		locker:   locker,
		events:   events,
		log:      log.Named("assessment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Start(ctx context.Context, owner string) (*Step, error) {
	unlock, err := s.locker.Lock(ctx, ownerKey(owner))
	if err != nil {
		return nil, fmt.Errorf("lock owner: %w", err)
	}
	defer unlock()

	sess, err := s.repo.GetActiveSession(ctx, owner)
	switch {
	case err == nil:
		step, err := s.resume(ctx, sess.ID)
		if err == nil {
			step.Answers = s.withStored(ctx, owner, step.Answers)
			return step, nil
		}
		// Closed between the lookup and the lock: start over.
		if !errors.Is(err, ErrNotActive) {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	sess, err = s.repo.CreateSession(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.log.Info("session started", zap.String("session_id", sess.ID.String()), zap.String("owner", owner))
	s.publish(ctx, EventStarted, sess)
	step, err := s.advance(ctx, sess, nil)
	if err != nil {
		return nil, err
	}
	step.Answers = s.withStored(ctx, owner, nil)
	return step, nil
}

// withStored appends the owner's stored answers for questions the session has
// not answered. A failing source is logged and skipped.
func (s *service) withStored(ctx context.Context, owner string, answers []Answer) []Answer {
	if s.stored == nil {
		return answers
	}
	stored, err := s.stored.StoredAnswers(ctx, owner)
	if err != nil {
		s.log.Warn("load stored answers", zap.String("owner", owner), zap.Error(err))
		return answers
	}
	seen := make(map[string]bool, len(answers)+len(stored))
	for _, a := range answers {
		seen[a.QuestionID] = true
	}
	for _, a := range stored {
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		answers = append(answers, a)
	}
	return answers
}

// resume re-reads the session under its lock so the phase it may persist is
// serialized with SubmitAnswer, Complete and End.
func (s *service) resume(ctx context.Context, id uuid.UUID) (*Step, error) {
	unlock, err := s.locker.Lock(ctx, sessionKey(id.String()))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, ErrNotActive
	}
	answers, err := s.repo.GetAnswers(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	step, err := s.advance(ctx, sess, answers)
	if err != nil {
		return nil, err
	}
	step.Answers = answers
	step.Resumed = true
	s.log.Info("session resumed",
		zap.String("session_id", sess.ID.String()),
		zap.String("owner", sess.Owner),
		zap.String("phase", string(step.Session.Phase)),
		zap.Int("answers", len(answers)),
	)
	return step, nil
}

func (s *service) SubmitAnswer(ctx context.Context, owner string, sessionID uuid.UUID, req SubmitRequest) (*Step, error) {
	questionID := strings.TrimSpace(req.QuestionID)
	if questionID == "" {
		return nil, fmt.Errorf("%w: question_id is required", ErrInvalidAnswer)
	}
	payload, err := DecodePayload(req.Payload)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, sessionKey(sessionID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.activeSession(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	a := Answer{
		QuestionID:   questionID,
		QuestionText: s.questionText(sess, questionID, req.QuestionText),
		Raw:          req.Payload,
		Value:        Normalize(payload),
	}
	if err := s.repo.UpsertAnswer(ctx, sess.ID, a); err != nil {
		return nil, err
	}
	s.log.Debug("answer stored",
		zap.String("session_id", sess.ID.String()),
		zap.String("question_id", questionID),
		zap.String("type", string(payload.Type())),
	)

	answers, err := s.repo.GetAnswers(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, sess, answers)
}

func (s *service) Complete(ctx context.Context, owner string, sessionID uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, sessionKey(sessionID.String()))
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.activeSession(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	answers, err := s.repo.GetAnswers(ctx, sess.ID)
	if err != nil {
		return err
	}
	step, err := s.advance(ctx, sess, answers)
	if err != nil {
		return err
	}
	if !step.Completed {
		return ErrIncomplete
	}
	if err := s.repo.Complete(ctx, sess.ID); err != nil {
		return err
	}
	sess.Status = StatusCompleted
	s.log.Info("session completed",
		zap.String("session_id", sess.ID.String()),
		zap.String("symptom", sess.DetectedSymptom),
	)
	s.publish(ctx, EventCompleted, sess)
	return nil
}

func (s *service) End(ctx context.Context, owner string, sessionID uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, sessionKey(sessionID.String()))
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.activeSession(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.Expire(ctx, sess.ID); err != nil {
		return err
	}
	sess.Status = StatusExpired
	s.log.Info("session ended",
		zap.String("session_id", sess.ID.String()),
		zap.String("phase", string(sess.Phase)),
	)
	s.publish(ctx, EventExpired, sess)
	return nil
}

func (s *service) Current(ctx context.Context, owner string, sessionID uuid.UUID) (*Step, error) {
	sess, err := s.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.GetAnswers(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolve(sess, answers)
	if err != nil {
		return nil, err
	}
	step := stepFrom(sess, res)
	step.Answers = answers
	return step, nil
}

func (s *service) Transcript(ctx context.Context, owner string, sessionID uuid.UUID) (*Transcript, error) {
	sess, err := s.ownedSession(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.GetAnswers(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolve(sess, answers)
	if err != nil {
		return nil, err
	}

	values := answerValues(answers)
	c := s.resolver.Catalog()
	questions := c.QuestionList(values)

	t := &Transcript{
		Session:        *sess,
		Completed:      res.Completed,
		ChiefComplaint: values[c.ChiefComplaintQuestion()],
		Gender:         values[c.GenderQuestion()],
	}
	if res.Symptom != "" {
		if sym, ok := c.Symptom(res.Symptom); ok {
			t.Symptom = &sym
			questions = append(questions, sym.Followups...)
		}
	}

	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		seen[q.ID] = true
		if v, ok := values[q.ID]; ok {
			t.Responses = append(t.Responses, QA{Question: q, Answer: v})
		}
	}
	for _, a := range answers {
		if seen[a.QuestionID] {
			continue
		}
		q, ok := c.Question(a.QuestionID)
		if !ok {
			q = catalog.Question{ID: a.QuestionID, Text: a.QuestionText, Type: catalog.TypeText}
		}
		t.Responses = append(t.Responses, QA{Question: q, Answer: a.Value})
	}
	return t, nil
}

func (s *service) Export(ctx context.Context, owner string, sessionID uuid.UUID) ([]byte, error) {
	t, err := s.Transcript(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.GetAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ExportXLSX(t, answers)
}

func (s *service) DetectSymptom(text string) *SymptomMatch {
	return s.resolver.Detector().Detect(text)
}

func (s *service) ownedSession(ctx context.Context, owner string, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Owner != owner {
		s.log.Warn("session owner mismatch",
			zap.String("session_id", id.String()),
			zap.String("owner", owner),
		)
		return nil, ErrForbidden
	}
	return sess, nil
}

func (s *service) activeSession(ctx context.Context, owner string, id uuid.UUID) (*Session, error) {
	sess, err := s.ownedSession(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, ErrNotActive
	}
	return sess, nil
}

func (s *service) resolve(sess *Session, answers []Answer) (Resolution, error) {
	res, err := s.resolver.Resolve(State{Phase: sess.Phase, Symptom: sess.DetectedSymptom}, answerValues(answers))
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			s.log.Error("catalog cannot serve session",
				zap.String("session_id", sess.ID.String()),
				zap.Error(err),
			)
		}
		return Resolution{}, err
	}
	if res.Inconsistent {
		s.log.Error("session in followup phase without a detected symptom",
			zap.String("session_id", sess.ID.String()),
		)
	}
	return res, nil
}

// advance resolves the session and persists a phase transition when the
// session is still active.
func (s *service) advance(ctx context.Context, sess *Session, answers []Answer) (*Step, error) {
	res, err := s.resolve(sess, answers)
	if err != nil {
		return nil, err
	}
	if sess.IsActive() && res.Changed(State{Phase: sess.Phase, Symptom: sess.DetectedSymptom}) {
		if err := s.repo.UpdatePhase(ctx, sess.ID, res.Phase, res.Symptom); err != nil {
			return nil, err
		}
		sess.Phase = res.Phase
		if res.Symptom != "" {
			sess.DetectedSymptom = res.Symptom
		}
		s.log.Info("phase changed",
			zap.String("session_id", sess.ID.String()),
			zap.String("phase", string(sess.Phase)),
			zap.String("symptom", sess.DetectedSymptom),
		)
		s.publish(ctx, EventPhase, sess)
	}
	return stepFrom(sess, res), nil
}

func stepFrom(sess *Session, res Resolution) *Step {
	return &Step{
		Session:   *sess,
		Question:  res.Question,
		Completed: res.Completed,
		Progress:  res.Progress,
		Match:     res.Match,
	}
}

// questionText prefers the catalog wording: the session's follow-ups first,
// then any known question, then what the client sent.
func (s *service) questionText(sess *Session, questionID, fallback string) string {
	c := s.resolver.Catalog()
	if sym, ok := c.Symptom(sess.DetectedSymptom); ok {
		for _, q := range sym.Followups {
			if q.ID == questionID {
				return q.Text
			}
		}
	}
	if q, ok := c.Question(questionID); ok {
		return q.Text
	}
	if t := strings.TrimSpace(fallback); t != "" {
		return t
	}
	return questionID
}

func (s *service) publish(ctx context.Context, kind EventKind, sess *Session) {
	if err := s.events.Publish(ctx, newEvent(kind, sess)); err != nil {
		s.log.Warn("publish event failed",
			zap.String("event", string(kind)),
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}
}
