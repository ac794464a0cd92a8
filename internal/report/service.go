package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"medical-assessment/internal/assessment"
	"medical-assessment/internal/catalog"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Question ids the patient block is read from.
const (
	NameQuestion = "q_name"
	AgeQuestion  = "q_age"
)

// Assessments is the part of the assessment service reports depend on.
type Assessments interface {
	Transcript(ctx context.Context, owner string, sessionID uuid.UUID) (*assessment.Transcript, error)
	Complete(ctx context.Context, owner string, sessionID uuid.UUID) error
}

// Notifier delivers finished reports to the clinician chat.
type Notifier interface {
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

type Service interface {
	// Generate writes a report for a finished session and completes it.
	Generate(ctx context.Context, owner string, sessionID uuid.UUID) (*Report, error)
	Get(ctx context.Context, owner, reportID string) (*Record, error)
	List(ctx context.Context, owner string) ([]Record, error)
	PDF(ctx context.Context, owner, reportID string) ([]byte, error)
}

type Config struct {
	DoctorChatID int64
	FontPaths    []string
}

type service struct {
	assessments Assessments
	generator   Generator
	repo        Repository
	notifier    Notifier
	pdf         *PDFRenderer
	doctorChat  int64
	log         *zap.Logger

	mu      sync.Mutex
	entropy *rand.Rand
	now     func() time.Time
}

// NewService wires report generation. notifier may be nil, in which case
// reports are not forwarded.
func NewService(assessments Assessments, gen Generator, repo Repository, notifier Notifier, cfg Config, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		assessments: assessments,
		generator:   gen,
		repo:        repo,
		notifier:    notifier,
		pdf:         NewPDFRenderer(cfg.FontPaths...),
		doctorChat:  cfg.DoctorChatID,
		log:         log.Named("report"),
		entropy:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *service) Generate(ctx context.Context, owner string, sessionID uuid.UUID) (*Report, error) {
	t, err := s.assessments.Transcript(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if t.Session.Status == assessment.StatusExpired {
		return nil, assessment.ErrNotActive
	}
	if !t.Completed {
		return nil, assessment.ErrIncomplete
	}

	req := NewRequest(t)
	s.log.Info("generating report",
		zap.String("session_id", sessionID.String()),
		zap.String("topic", req.Topic),
		zap.Int("responses", len(req.Responses)),
	)
	r, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	now := s.now()
	r.ReportID = s.newID(now)
	r.GeneratedAt = now
	r.AssessmentTopic = req.Topic
	r.PatientInfo = req.Patient
	if r.UrgencyLevel == "" {
		r.UrgencyLevel = catalog.DefaultUrgency
		if t.Symptom != nil {
			r.UrgencyLevel = t.Symptom.DefaultUrgency
		}
	}

	rec := &Record{
		ReportID:        r.ReportID,
		Owner:           owner,
		SessionID:       sessionID,
		AssessmentTopic: r.AssessmentTopic,
		UrgencyLevel:    r.UrgencyLevel,
		Report:          *r,
		CreatedAt:       now,
	}
	// Every stored report belongs to a completed session.
	if t.Session.IsActive() {
		if err := s.assessments.Complete(ctx, owner, sessionID); err != nil && !errors.Is(err, assessment.ErrNotActive) {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.forward(ctx, r)
	s.log.Info("report generated",
		zap.String("report_id", r.ReportID),
		zap.String("urgency", r.UrgencyLevel),
		zap.Int("causes", len(r.PossibleCauses)),
	)
	return r, nil
}

// forward sends the PDF to the clinician chat. Failures are logged only.
func (s *service) forward(ctx context.Context, r *Report) {
	if s.notifier == nil || s.doctorChat == 0 {
		return
	}
	data, err := s.pdf.Render(r)
	if err != nil {
		s.log.Warn("render report pdf", zap.String("report_id", r.ReportID), zap.Error(err))
		return
	}
	name := fmt.Sprintf("report_%s.pdf", r.ReportID)
	if err := s.notifier.SendDocument(ctx, s.doctorChat, data, name); err != nil {
		s.log.Warn("send report to doctor", zap.String("report_id", r.ReportID), zap.Error(err))
	}
}

func (s *service) Get(ctx context.Context, owner, reportID string) (*Record, error) {
	return s.repo.Get(ctx, owner, reportID)
}

func (s *service) List(ctx context.Context, owner string) ([]Record, error) {
	return s.repo.List(ctx, owner)
}

func (s *service) PDF(ctx context.Context, owner, reportID string) ([]byte, error) {
	rec, err := s.repo.Get(ctx, owner, reportID)
	if err != nil {
		return nil, err
	}
	return s.pdf.Render(&rec.Report)
}

// NewRequest derives the generator input from a transcript: topic from the
// chief complaint, patient block from the name, age and gender answers.
func NewRequest(t *assessment.Transcript) Request {
	req := Request{
		SessionID: t.Session.ID,
		Owner:     t.Session.Owner,
		Topic:     GeneralTopic,
		Responses: t.Responses,
		Symptom:   t.Symptom,
		Patient:   PatientInfo{Gender: t.Gender},
	}
	if v := strings.TrimSpace(t.ChiefComplaint); v != "" {
		req.Topic = strings.ToLower(v)
	}
	req.Patient.Name, _ = t.Answer(NameQuestion)
	if v, ok := t.Answer(AgeQuestion); ok {
		req.Patient.Age = parseAge(v)
	}
	return req
}

// maxAge bounds the age answer; anything outside [0, maxAge] is left unset.
const maxAge = 150

func parseAge(v string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > maxAge {
		return 0
	}
	return int(f)
}
