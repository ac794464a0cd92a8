package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

const (
	QuestionnaireFile = "questionnaire.json"
	DecisionTreeFile  = "decision_tree.json"
)

// ErrInvalid marks malformed catalog documents. It is a configuration error.
var ErrInvalid = errors.New("invalid catalog")

//go:embed data/*.json
var embedded embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary. It is parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultCatalog, defaultErr = Load(sub)
	})
	return defaultCatalog, defaultErr
}

// LoadDir reads questionnaire.json and decision_tree.json from dir.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

func Load(fsys fs.FS) (*Catalog, error) {
	q, err := fs.ReadFile(fsys, QuestionnaireFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", QuestionnaireFile, err)
	}
	t, err := fs.ReadFile(fsys, DecisionTreeFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DecisionTreeFile, err)
	}
	return Parse(q, t)
}

type questionDoc struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Type         string   `json:"type"`
	Options      []Option `json:"options"`
	IsCompulsory bool     `json:"is_compulsory"`
}

func (d questionDoc) question() Question {
	q := Question{
		ID:           d.ID,
		Text:         d.Text,
		Type:         parseType(d.Type),
		IsCompulsory: d.IsCompulsory,
	}
	if q.Type.IsChoice() {
		q.Options = d.Options
	}
	return q
}

type questionnaireDoc struct {
	Version                string          `json:"version"`
	GenderQuestion         string          `json:"gender_question"`
	ChiefComplaintQuestion string          `json:"chief_complaint_question"`
	Questions              []questionDoc   `json:"questions"`
	Conditional            json.RawMessage `json:"conditional"`
}

type followupDoc struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []Option `json:"options"`
}

type symptomDoc struct {
	ID             string          `json:"symptom_id"`
	Label          string          `json:"label"`
	Keywords       []string        `json:"keywords"`
	DefaultUrgency string          `json:"default_urgency"`
	Followups      json.RawMessage `json:"followup_questions"`
}

type decisionTreeDoc struct {
	Tree struct {
		Symptoms []symptomDoc `json:"symptoms"`
	} `json:"symptom_decision_tree"`
}

// Parse builds and validates a Catalog from the two JSON documents.
func Parse(questionnaire, decisionTree []byte) (*Catalog, error) {
	var qd questionnaireDoc
	if err := json.Unmarshal(questionnaire, &qd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, QuestionnaireFile, err)
	}
	var td decisionTreeDoc
	if err := json.Unmarshal(decisionTree, &td); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, DecisionTreeFile, err)
	}

	c := &Catalog{
		version:        qd.Version,
		genderQ:        qd.GenderQuestion,
		chiefComplaint: qd.ChiefComplaintQuestion,
		symptomIndex:   make(map[string]int),
		questionIndex:  make(map[string]Question),
	}
	if c.genderQ == "" {
		c.genderQ = DefaultGenderQuestion
	}
	if c.chiefComplaint == "" {
		c.chiefComplaint = DefaultChiefComplaintQuestion
	}
	for _, d := range qd.Questions {
		c.base = append(c.base, d.question())
	}

	if len(qd.Conditional) > 0 {
		err := eachMember(qd.Conditional, func(key string, raw json.RawMessage) error {
			trigger, err := parseTrigger(key)
			if err != nil {
				return err
			}
			var docs []questionDoc
			if err := json.Unmarshal(raw, &docs); err != nil {
				return fmt.Errorf("conditional %q: %v", key, err)
			}
			set := ConditionalSet{Trigger: trigger}
			for _, d := range docs {
				set.Questions = append(set.Questions, d.question())
			}
			c.conditional = append(c.conditional, set)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, QuestionnaireFile, err)
		}
	}

	for _, sd := range td.Tree.Symptoms {
		s := Symptom{
			ID:             sd.ID,
			Label:          sd.Label,
			Keywords:       sd.Keywords,
			DefaultUrgency: sd.DefaultUrgency,
		}
		if s.DefaultUrgency == "" {
			s.DefaultUrgency = DefaultUrgency
		}
		if len(sd.Followups) > 0 {
			err := eachMember(sd.Followups, func(key string, raw json.RawMessage) error {
				var fd followupDoc
				if err := json.Unmarshal(raw, &fd); err != nil {
					return fmt.Errorf("followup %q: %v", key, err)
				}
				q := Question{
					ID:           key,
					Text:         fd.Question,
					Type:         parseType(fd.Type),
					IsCompulsory: true,
				}
				if q.Type.IsChoice() {
					q.Options = fd.Options
				}
				s.Followups = append(s.Followups, q)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %s: symptom %q: %v", ErrInvalid, DecisionTreeFile, sd.ID, err)
			}
		}
		c.symptoms = append(c.symptoms, s)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return c, nil
}

func parseTrigger(key string) (Trigger, error) {
	id, value, ok := strings.Cut(key, "=")
	id, value = strings.TrimSpace(id), strings.TrimSpace(value)
	if !ok || id == "" || value == "" {
		return Trigger{}, fmt.Errorf("conditional key %q is not of the form question_id=value", key)
	}
	return Trigger{QuestionID: id, Value: value}, nil
}

func (c *Catalog) index() {
	for i, s := range c.symptoms {
		c.symptomIndex[s.ID] = i
		for _, q := range s.Followups {
			c.questionIndex[q.ID] = q
		}
	}
	for _, set := range c.conditional {
		for _, q := range set.Questions {
			c.questionIndex[q.ID] = q
		}
	}
	for _, q := range c.base {
		c.questionIndex[q.ID] = q
	}
}
