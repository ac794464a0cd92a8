// Package catalog holds the static questionnaire and the symptom decision tree.
// A Catalog is immutable after loading and safe for concurrent use.
package catalog

import "fmt"

const (
	DefaultGenderQuestion         = "q_gender"
	DefaultChiefComplaintQuestion = "q_current_ailment"
)

type Catalog struct {
	version        string
	genderQ        string
	chiefComplaint string
	base           []Question
	conditional    []ConditionalSet
	symptoms       []Symptom
	symptomIndex   map[string]int
	questionIndex  map[string]Question
}

func (c *Catalog) Version() string { return c.version }

// GenderQuestion is the id of the designated gender question.
func (c *Catalog) GenderQuestion() string { return c.genderQ }

// ChiefComplaintQuestion is the id whose answer drives symptom detection.
func (c *Catalog) ChiefComplaintQuestion() string { return c.chiefComplaint }

func (c *Catalog) BaseQuestions() []Question {
	return append([]Question(nil), c.base...)
}

// ConditionalQuestions returns the questions of every conditional set whose
// trigger is satisfied by answers, in document order.
func (c *Catalog) ConditionalQuestions(answers map[string]string) []Question {
	var out []Question
	for _, set := range c.conditional {
		if set.Trigger.Satisfied(answers) {
			out = append(out, set.Questions...)
		}
	}
	return out
}

// QuestionList is the questionnaire-phase list for the given answers: the base
// questions followed by the triggered conditional sets.
func (c *Catalog) QuestionList(answers map[string]string) []Question {
	return append(c.BaseQuestions(), c.ConditionalQuestions(answers)...)
}

func (c *Catalog) ConditionalSets() []ConditionalSet {
	return append([]ConditionalSet(nil), c.conditional...)
}

func (c *Catalog) Symptoms() []Symptom {
	return append([]Symptom(nil), c.symptoms...)
}

func (c *Catalog) Symptom(id string) (Symptom, bool) {
	i, ok := c.symptomIndex[id]
	if !ok {
		return Symptom{}, false
	}
	return c.symptoms[i], true
}

// Question looks up any questionnaire, conditional or follow-up question by id.
func (c *Catalog) Question(id string) (Question, bool) {
	q, ok := c.questionIndex[id]
	return q, ok
}

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(version=%s base=%d conditional=%d symptoms=%d)",
		c.version, len(c.base), len(c.conditional), len(c.symptoms))
}
