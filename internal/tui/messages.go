package tui

import (
	"medical-assessment/internal/assessment"
	"medical-assessment/internal/report"
)

// StepMsg carries the step returned by start or an answer submission.
type StepMsg struct {
	Step *assessment.Step
}

// ReportMsg carries a generated report.
type ReportMsg struct {
	Report *report.Report
}

// ErrMsg reports a failed service call. The session stays where it was.
type ErrMsg struct {
	Err error
}
