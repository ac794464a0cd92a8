package agent

import (
	"fmt"
	"strings"

	"medical-assessment/internal/report"
)

const systemPrompt = `You are a careful medical triage assistant. You receive a patient's answers to a structured self-assessment questionnaire.
Return ONLY a JSON object with these fields:
- "summary": array of short strings restating the key findings
- "possible_causes": array of objects {"id", "title", "short_description", "severity" (mild|moderate|severe), "probability" (0..1), "subtitle", "detail": {"about_this": [string], "how_common": {"percentage": number, "description": string}, "what_you_can_do_now": [string], "warning": string}}
- "advice": array of short actionable strings
- "urgency_level": one of "red_emergency", "yellow_doctor_visit", "green_self_care"
Do not diagnose with certainty. Prefer the more urgent level when red-flag symptoms are present.`

func userPrompt(req report.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment topic: %s\n", req.Topic)
	if req.Patient.Age > 0 || req.Patient.Gender != "" {
		fmt.Fprintf(&b, "Patient: age %d, gender %s\n", req.Patient.Age, orUnknown(req.Patient.Gender))
	}
	if req.Symptom != nil {
		fmt.Fprintf(&b, "Detected symptom: %s (default urgency %s)\n", req.Symptom.Label, req.Symptom.DefaultUrgency)
	}
	b.WriteString("\nAnswers:\n")
	for i, qa := range req.Responses {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, qa.Question.Text, orUnknown(qa.Answer))
	}
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
