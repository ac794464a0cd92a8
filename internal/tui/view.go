package tui

import (
	"fmt"
	"strings"

	"medical-assessment/internal/catalog"
	"medical-assessment/internal/report"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Medical self-assessment"))
	b.WriteString("\n\n")

	switch {
	case m.report != nil:
		b.WriteString(renderReport(m.report))
	case m.step == nil:
	case m.step.Completed || m.step.Question == nil:
		b.WriteString(QuestionStyle.Render("Assessment complete."))
		b.WriteString("\n")
		if s := m.step.Match; s != nil {
			b.WriteString(fmt.Sprintf("Detected: %s  ", s.Label))
			b.WriteString(UrgencyStyle(s.DefaultUrgency).Render(s.DefaultUrgency))
			b.WriteString("\n")
		}
	default:
		b.WriteString(m.renderQuestion(m.step.Question))
	}

	if m.status != "" {
		b.WriteString("\n" + DimStyle.Render(m.status) + "\n")
	}
	if m.err != "" {
		b.WriteString("\n" + ErrorStyle.Render("Error: "+m.err) + "\n")
	}
	b.WriteString("\n" + m.footer())
	return b.String()
}

func (m Model) renderQuestion(q *catalog.Question) string {
	var b strings.Builder
	p := m.step.Progress
	b.WriteString(DimStyle.Render(fmt.Sprintf("%s · %d/%d", m.step.Session.Phase, p.Current, p.Total)))
	b.WriteString("\n")
	text := q.Text
	if q.IsCompulsory {
		text += " *"
	}
	b.WriteString(QuestionStyle.Render(text))
	b.WriteString("\n\n")

	if !q.Type.IsChoice() {
		b.WriteString(InputStyle.Render("> " + m.input + "█"))
		b.WriteString("\n")
		return b.String()
	}
	for i, o := range q.Options {
		mark := "  "
		if q.Type == catalog.TypeMultiChoice {
			mark = "[ ] "
			if m.selected[i] {
				mark = "[x] "
			}
		}
		line := mark + o.Label
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("› " + line))
		} else {
			b.WriteString(DimStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderReport(r *report.Report) string {
	var b strings.Builder
	b.WriteString(QuestionStyle.Render("Report " + r.ReportID))
	b.WriteString("\n")
	b.WriteString("Urgency: " + UrgencyStyle(r.UrgencyLevel).Render(r.UrgencyLevel) + "\n\n")
	for _, s := range r.Summary {
		b.WriteString("• " + s + "\n")
	}
	if len(r.PossibleCauses) > 0 {
		b.WriteString("\n" + TitleStyle.Render("Possible causes") + "\n")
		for _, c := range r.PossibleCauses {
			b.WriteString(fmt.Sprintf("• %s (%s)\n", c.Title, c.Severity))
		}
	}
	if len(r.Advice) > 0 {
		b.WriteString("\n" + TitleStyle.Render("Advice") + "\n")
		for _, a := range r.Advice {
			b.WriteString("• " + a + "\n")
		}
	}
	return PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) footer() string {
	key := func(k, desc string) string {
		return FooterKeyStyle.Render(k) + " " + FooterDescStyle.Render(desc)
	}
	var keys []string
	switch {
	case m.step == nil || m.report != nil:
		keys = []string{key("q", "quit")}
	case m.step.Completed || m.step.Question == nil:
		if m.reports != nil {
			keys = append(keys, key("r", "report"))
		}
		keys = append(keys, key("q", "quit"))
	case m.step.Question.Type == catalog.TypeMultiChoice:
		keys = []string{key("↑/↓", "move"), key("space", "toggle"), key("enter", "submit"), key("q", "quit")}
	case m.step.Question.Type.IsChoice():
		keys = []string{key("↑/↓", "move"), key("enter", "submit"), key("q", "quit")}
	default:
		keys = []string{key("enter", "submit"), key("esc", "quit")}
	}
	return strings.Join(keys, "  ")
}
