// Package tui is a terminal client that walks one assessment session
// in-process, question by question.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"medical-assessment/internal/assessment"
	"medical-assessment/internal/catalog"
	"medical-assessment/internal/report"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the root bubbletea model of the assessment client.
type Model struct {
	assessments assessment.Service
	reports     report.Service
	owner       string

	step   *assessment.Step
	report *report.Report

	// Answer being composed
	input    string
	cursor   int
	selected map[int]bool
	// Answers known before the session, keyed by question id
	prefill map[string]string

	busy   bool
	err    string
	width  int
	status string
}

// New returns a model for owner. reports may be nil, in which case the
// report key is disabled.
func New(assessments assessment.Service, reports report.Service, owner string) Model {
	return Model{
		assessments: assessments,
		reports:     reports,
		owner:       owner,
		selected:    map[int]bool{},
		prefill:     map[string]string{},
		busy:        true,
		status:      "Starting assessment...",
	}
}

func (m Model) Init() tea.Cmd {
	return startCmd(m.assessments, m.owner)
}

func startCmd(svc assessment.Service, owner string) tea.Cmd {
	return func() tea.Msg {
		step, err := svc.Start(context.Background(), owner)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return StepMsg{Step: step}
	}
}

func submitCmd(svc assessment.Service, owner string, step *assessment.Step, payload json.RawMessage) tea.Cmd {
	return func() tea.Msg {
		next, err := svc.SubmitAnswer(context.Background(), owner, step.Session.ID, assessment.SubmitRequest{
			QuestionID:   step.Question.ID,
			QuestionText: step.Question.Text,
			Payload:      payload,
		})
		if err != nil {
			return ErrMsg{Err: err}
		}
		return StepMsg{Step: next}
	}
}

func generateCmd(svc report.Service, owner string, step *assessment.Step) tea.Cmd {
	return func() tea.Msg {
		r, err := svc.Generate(context.Background(), owner, step.Session.ID)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ReportMsg{Report: r}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StepMsg:
		m.step = msg.Step
		m.busy = false
		m.err = ""
		m.input = ""
		m.cursor = 0
		m.selected = map[int]bool{}
		m.status = ""
		for _, a := range msg.Step.Answers {
			m.prefill[a.QuestionID] = a.Value
		}
		if msg.Step.Resumed {
			m.status = fmt.Sprintf("Resumed session with %d saved answers", len(msg.Step.Answers))
		}
		m.applyPrefill()
		return m, nil

	case ReportMsg:
		m.report = msg.Report
		m.busy = false
		m.err = ""
		m.status = ""
		return m, nil

	case ErrMsg:
		m.busy = false
		m.err = msg.Err.Error()
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC || key == KeyEsc {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if m.step == nil || m.report != nil {
		if key == KeyQuit {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.step.Completed || m.step.Question == nil {
		switch key {
		case KeyQuit:
			return m, tea.Quit
		case KeyReport:
			if m.reports == nil {
				return m, nil
			}
			m.busy = true
			m.status = "Generating report..."
			return m, generateCmd(m.reports, m.owner, m.step)
		}
		return m, nil
	}

	q := m.step.Question
	if q.Type.IsChoice() {
		return m.handleChoiceKey(key, q)
	}
	return m.handleTextKey(msg, q)
}

func (m Model) handleChoiceKey(key string, q *catalog.Question) (tea.Model, tea.Cmd) {
	switch key {
	case KeyQuit:
		return m, tea.Quit
	case KeyUp, "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case KeyDown, "j":
		if m.cursor < len(q.Options)-1 {
			m.cursor++
		}
	case KeySpace:
		if q.Type == catalog.TypeMultiChoice {
			m.selected[m.cursor] = !m.selected[m.cursor]
		}
	case KeyEnter:
		return m.submit(choicePayload(q, m.cursor, m.selected))
	}
	return m, nil
}

func (m Model) handleTextKey(msg tea.KeyMsg, q *catalog.Question) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input)
		if value == "" && q.IsCompulsory {
			m.err = "an answer is required"
			return m, nil
		}
		if q.Type == catalog.TypeNumber {
			if _, err := strconv.ParseFloat(value, 64); err != nil && value != "" {
				m.err = "enter a number"
				return m, nil
			}
		}
		return m.submit(textPayload(q.Type, value))
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// applyPrefill puts a known answer into the editor for the current question.
func (m *Model) applyPrefill() {
	if m.step == nil || m.step.Question == nil {
		return
	}
	q := m.step.Question
	v, ok := m.prefill[q.ID]
	if !ok || v == "" {
		return
	}
	if !q.Type.IsChoice() {
		m.input = v
		return
	}
	for i, o := range q.Options {
		if strings.EqualFold(o.Label, v) || strings.EqualFold(o.ID, v) {
			m.cursor = i
			return
		}
	}
}

func (m Model) submit(payload json.RawMessage) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = ""
	return m, submitCmd(m.assessments, m.owner, m.step, payload)
}

func textPayload(t catalog.QuestionType, value string) json.RawMessage {
	var b []byte
	if t == catalog.TypeNumber && value != "" {
		b, _ = json.Marshal(map[string]any{"type": t, "value": json.Number(value)})
	} else {
		b, _ = json.Marshal(map[string]any{"type": catalog.TypeText, "value": value})
	}
	return b
}

// choicePayload answers with the highlighted option, or for multi choice with
// every toggled option (the highlighted one when none are toggled).
func choicePayload(q *catalog.Question, cursor int, selected map[int]bool) json.RawMessage {
	if q.Type == catalog.TypeMultiChoice {
		labels := []string{}
		for i, o := range q.Options {
			if selected[i] {
				labels = append(labels, o.Label)
			}
		}
		if len(labels) == 0 && cursor < len(q.Options) {
			labels = append(labels, q.Options[cursor].Label)
		}
		b, _ := json.Marshal(map[string]any{"type": q.Type, "selected_option_labels": labels})
		return b
	}
	o := q.Options[cursor]
	b, _ := json.Marshal(map[string]any{
		"type":                  q.Type,
		"selected_option_label": o.Label,
		"selected_option_id":    o.ID,
	})
	return b
}
