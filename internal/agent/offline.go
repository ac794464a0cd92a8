package agent

import (
	"context"
	"fmt"
	"strings"

	"medical-assessment/internal/catalog"
	"medical-assessment/internal/report"
)

// OfflineGenerator builds a report from the answers alone. Used when no LLM is
// configured and by the CLI.
type OfflineGenerator struct{}

func NewOfflineGenerator() *OfflineGenerator { return &OfflineGenerator{} }

var adviceByUrgency = map[string][]string{
	"red_emergency": {
		"Call emergency services or go to the nearest emergency department now.",
		"Do not drive yourself.",
	},
	"yellow_doctor_visit": {
		"Book an appointment with your doctor in the next few days.",
		"Seek urgent care if your symptoms get worse.",
	},
	"green_self_care": {
		"Rest and stay hydrated.",
		"See a doctor if symptoms last more than a week.",
	},
}

func (g *OfflineGenerator) Generate(_ context.Context, req report.Request) (*report.Report, error) {
	urgency := catalog.DefaultUrgency
	if req.Symptom != nil && req.Symptom.DefaultUrgency != "" {
		urgency = req.Symptom.DefaultUrgency
	}

	r := &report.Report{
		Summary:      []string{fmt.Sprintf("Main concern: %s.", req.Topic)},
		Advice:       adviceByUrgency[urgency],
		UrgencyLevel: urgency,
	}
	for _, qa := range req.Responses {
		if strings.TrimSpace(qa.Answer) == "" {
			continue
		}
		r.Summary = append(r.Summary, fmt.Sprintf("%s %s", strings.TrimSuffix(qa.Question.Text, "?")+":", qa.Answer))
	}
	if r.Advice == nil {
		r.Advice = adviceByUrgency[catalog.DefaultUrgency]
	}

	if s := req.Symptom; s != nil {
		r.PossibleCauses = []report.PossibleCause{{
			ID:               s.ID,
			Title:            s.Label,
			ShortDescription: fmt.Sprintf("Your answers match the %s pattern.", strings.ToLower(s.Label)),
			Severity:         severityFor(urgency),
			Probability:      0.5,
			Detail: report.CauseDetail{
				AboutThis:       []string{fmt.Sprintf("Matched on the keywords for %s.", strings.ToLower(s.Label))},
				WhatYouCanDoNow: r.Advice,
			},
		}}
	}
	return r, nil
}

func severityFor(urgency string) string {
	switch urgency {
	case "red_emergency":
		return "severe"
	case "green_self_care":
		return "mild"
	default:
		return "moderate"
	}
}
