package assessment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"medical-assessment/internal/catalog"

	"github.com/stretchr/testify/require"
)

const fixtureQuestionnaire = `{
  "version": "test",
  "questions": [
    {"id": "q_gender", "text": "What is your gender?", "type": "single_choice", "options": ["male", "female"]},
    {"id": "q_current_ailment", "text": "What brings you here today?", "type": "text", "is_compulsory": true}
  ],
  "conditional": {
    "q_gender=female": [
      {"id": "q_pregnant", "text": "Are you pregnant?", "type": "single_choice", "options": ["yes", "no", "not_sure"]}
    ]
  }
}`

const fixtureDecisionTree = `{
  "symptom_decision_tree": {
    "symptoms": [
      {
        "symptom_id": "chest_pain",
        "label": "Chest Pain",
        "keywords": ["chest pain"],
        "default_urgency": "red_emergency",
        "followup_questions": {
          "fq_chest_radiation": {"question": "Does the pain spread?", "type": "single_choice", "options": ["yes", "no"]}
        }
      },
      {
        "symptom_id": "headache",
        "label": "Headache",
        "keywords": ["headache", "migraine"],
        "followup_questions": {
          "fq_headache_onset": {"question": "Did it start suddenly?", "type": "single_choice", "options": ["yes", "no"]},
          "fq_headache_nausea": {"question": "Do you feel sick?", "type": "single_choice", "options": ["yes", "no"]}
        }
      },
      {
        "symptom_id": "general_pain",
        "label": "Pain",
        "keywords": ["pain", "ache"],
        "followup_questions": {
          "fq_pain_where": {"question": "Where does it hurt?", "type": "text"}
        }
      }
    ]
  }
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(fixtureQuestionnaire), []byte(fixtureDecisionTree))
	require.NoError(t, err)
	return c
}

func textPayload(v string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"type": "text", "value": v})
	return b
}

func choicePayload(label string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"type": "single_choice", "selected_option_label": label})
	return b
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}
