package report

import (
	"context"
	"errors"
	"time"

	"medical-assessment/internal/assessment"
	"medical-assessment/internal/catalog"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("report not found")

// GeneralTopic is the assessment topic when no chief complaint was recorded.
const GeneralTopic = "general_health"

type PatientInfo struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type HowCommon struct {
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description"`
}

type CauseDetail struct {
	AboutThis       []string  `json:"about_this"`
	HowCommon       HowCommon `json:"how_common"`
	WhatYouCanDoNow []string  `json:"what_you_can_do_now"`
	Warning         string    `json:"warning,omitempty"`
}

type PossibleCause struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	ShortDescription string      `json:"short_description"`
	Severity         string      `json:"severity"`
	Probability      float64     `json:"probability"`
	Subtitle         string      `json:"subtitle,omitempty"`
	Detail           CauseDetail `json:"detail"`
}

// Report is the document returned to clients and stored as report_data.
type Report struct {
	ReportID        string          `json:"report_id"`
	AssessmentTopic string          `json:"assessment_topic"`
	GeneratedAt     time.Time       `json:"generated_at"`
	PatientInfo     PatientInfo     `json:"patient_info"`
	Summary         []string        `json:"summary"`
	PossibleCauses  []PossibleCause `json:"possible_causes"`
	Advice          []string        `json:"advice"`
	UrgencyLevel    string          `json:"urgency_level"`
}

// Record is a stored report with its ownership columns.
type Record struct {
	ReportID        string    `json:"report_id"`
	Owner           string    `json:"-"`
	SessionID       uuid.UUID `json:"session_id"`
	AssessmentTopic string    `json:"assessment_topic"`
	UrgencyLevel    string    `json:"urgency_level"`
	Report          Report    `json:"report_data"`
	CreatedAt       time.Time `json:"created_at"`
}

// Request is what a Generator gets to write a report from.
type Request struct {
	SessionID uuid.UUID
	Owner     string
	Topic     string
	Patient   PatientInfo
	Responses []assessment.QA
	Symptom   *catalog.Symptom
}

// Generator writes the clinical content of a report: summary, causes, advice
// and urgency. Identity fields are filled in by the service.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Report, error)
}
