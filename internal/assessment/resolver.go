package assessment

import (
	"fmt"

	"medical-assessment/internal/catalog"
)

// State is the persisted part of a session the resolver depends on.
type State struct {
	Phase   Phase
	Symptom string
}

// Resolution is the outcome of one resolver call. Phase and Symptom are the
// values the caller must persist before resolving again.
type Resolution struct {
	Question  *catalog.Question
	Completed bool
	Phase     Phase
	Symptom   string
	Match     *SymptomMatch
	Progress  Progress

	// Inconsistent is set when the session is in the follow-up phase without
	// a recorded symptom. Resolution still reports completion.
	Inconsistent bool
}

// Changed reports whether the resolution moved the session away from s.
func (r Resolution) Changed(s State) bool {
	return r.Phase != s.Phase || r.Symptom != s.Symptom
}

// Resolver computes the next question from (phase, symptom, answers). It does
// no I/O and holds no per-session state; one Resolver serves all sessions.
type Resolver struct {
	catalog  *catalog.Catalog
	detector *Detector
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c, detector: NewDetector(c)}
}

func (r *Resolver) Catalog() *catalog.Catalog { return r.catalog }

func (r *Resolver) Detector() *Detector { return r.detector }

// Resolve runs the state machine once. answers maps question ids to their
// normalized values; a key that is present counts as answered, even when its
// value is empty.
func (r *Resolver) Resolve(state State, answers map[string]string) (Resolution, error) {
	phase := state.Phase
	if phase == "" {
		phase = PhaseQuestionnaire
	}
	res := Resolution{Phase: phase, Symptom: state.Symptom}

	switch phase {
	case PhaseQuestionnaire:
		list := r.catalog.QuestionList(answers)
		if q, p := firstUnanswered(list, answers); q != nil {
			res.Question, res.Progress = q, p
			return res, nil
		}

		match := r.detector.Detect(answers[r.catalog.ChiefComplaintQuestion()])
		if match == nil {
			res.Completed = true
			res.Progress = Progress{Current: len(list), Total: len(list)}
			return res, nil
		}
		res.Phase, res.Symptom, res.Match = PhaseFollowup, match.SymptomID, match
		return r.followup(res, answers)

	case PhaseFollowup:
		if res.Symptom == "" {
			res.Completed, res.Inconsistent = true, true
			return res, nil
		}
		if m := r.detector.Detect(answers[r.catalog.ChiefComplaintQuestion()]); m != nil && m.SymptomID == res.Symptom {
			res.Match = m
		}
		return r.followup(res, answers)

	default:
		return Resolution{}, fmt.Errorf("resolve: unknown phase %q", phase)
	}
}

func (r *Resolver) followup(res Resolution, answers map[string]string) (Resolution, error) {
	s, ok := r.catalog.Symptom(res.Symptom)
	if !ok {
		return Resolution{}, &ConfigError{SymptomID: res.Symptom, Reason: "not present in the decision tree"}
	}
	if len(s.Followups) == 0 {
		return Resolution{}, &ConfigError{SymptomID: res.Symptom, Reason: "no followup questions"}
	}
	if res.Match == nil {
		res.Match = &SymptomMatch{SymptomID: s.ID, Label: s.Label, DefaultUrgency: s.DefaultUrgency}
	}
	if q, p := firstUnanswered(s.Followups, answers); q != nil {
		res.Question, res.Progress = q, p
		return res, nil
	}
	res.Completed = true
	res.Progress = Progress{Current: len(s.Followups), Total: len(s.Followups)}
	return res, nil
}

func firstUnanswered(list []catalog.Question, answers map[string]string) (*catalog.Question, Progress) {
	answered := 0
	var next *catalog.Question
	for i := range list {
		if _, ok := answers[list[i].ID]; ok {
			answered++
			continue
		}
		if next == nil {
			q := list[i]
			next = &q
		}
	}
	if next == nil {
		return nil, Progress{}
	}
	return next, Progress{Current: answered + 1, Total: len(list)}
}
