package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the structural rules the resolver relies on. All problems
// are reported together, wrapped in ErrInvalid.
func (c *Catalog) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.base) == 0 {
		add("questionnaire has no questions")
	}

	seen := make(map[string]string)
	checkQuestion := func(where string, q Question) {
		if q.ID == "" {
			add("%s: question without id", where)
			return
		}
		if prev, dup := seen[q.ID]; dup {
			add("%s: question id %q already used in %s", where, q.ID, prev)
		}
		seen[q.ID] = where
		if strings.TrimSpace(q.Text) == "" {
			add("%s: question %q has no text", where, q.ID)
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			add("%s: choice question %q has no options", where, q.ID)
		}
	}

	base := make(map[string]bool, len(c.base))
	for _, q := range c.base {
		checkQuestion("questions", q)
		base[q.ID] = true
	}
	if !base[c.genderQ] {
		add("gender question %q is not a base question", c.genderQ)
	}
	if !base[c.chiefComplaint] {
		add("chief complaint question %q is not a base question", c.chiefComplaint)
	}

	for _, set := range c.conditional {
		where := "conditional " + set.Trigger.String()
		if !base[set.Trigger.QuestionID] {
			add("%s: trigger references unknown base question %q", where, set.Trigger.QuestionID)
		}
		if len(set.Questions) == 0 {
			add("%s: empty question set", where)
		}
		for _, q := range set.Questions {
			checkQuestion(where, q)
		}
	}

	symptoms := make(map[string]bool, len(c.symptoms))
	for _, s := range c.symptoms {
		where := "symptom " + s.ID
		if s.ID == "" {
			add("symptom without symptom_id")
			continue
		}
		if symptoms[s.ID] {
			add("%s: duplicate symptom_id", where)
		}
		symptoms[s.ID] = true
		if len(s.Keywords) == 0 {
			add("%s: no keywords", where)
		}
		for _, k := range s.Keywords {
			if strings.TrimSpace(k) == "" {
				add("%s: empty keyword", where)
			}
		}
		if len(s.Followups) == 0 {
			add("%s: no followup questions", where)
		}
		// Follow-up ids only need to be unique within their own symptom, but
		// must not shadow questionnaire ids that share the answer namespace.
		local := make(map[string]bool, len(s.Followups))
		for _, q := range s.Followups {
			if local[q.ID] {
				add("%s: duplicate followup %q", where, q.ID)
			}
			local[q.ID] = true
			if _, clash := seen[q.ID]; clash {
				add("%s: followup %q collides with a questionnaire question", where, q.ID)
			}
			if strings.TrimSpace(q.Text) == "" {
				add("%s: followup %q has no text", where, q.ID)
			}
			if q.Type.IsChoice() && len(q.Options) == 0 {
				add("%s: choice followup %q has no options", where, q.ID)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// IsInvalid reports whether err came from catalog validation or parsing.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
