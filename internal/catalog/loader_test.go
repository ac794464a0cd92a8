package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuestionnaire = `{
  "questions": [
    {"id": "q_gender", "text": "Gender?", "type": "single_choice", "options": ["male", "female"]},
    {"id": "q_current_ailment", "text": "What brings you here?", "type": "text", "is_compulsory": true}
  ],
  "conditional": {
    "q_gender=female": [
      {"id": "q_pregnant", "text": "Pregnant?", "type": "single_choice", "options": ["yes", "no", "not_sure"]}
    ]
  }
}`

const testDecisionTree = `{
  "symptom_decision_tree": {
    "symptoms": [
      {
        "symptom_id": "headache",
        "label": "Headache",
        "keywords": ["headache"],
        "followup_questions": {
          "fq_z_last_alphabetically": {"question": "First?", "type": "text"},
          "fq_a_first_alphabetically": {"question": "Second?", "type": "single_choice", "options": [{"id": "a", "label": "Option A"}, "b_option"]}
        }
      }
    ]
  }
}`

func TestParse_PreservesDocumentOrder(t *testing.T) {
	c, err := Parse([]byte(testQuestionnaire), []byte(testDecisionTree))
	require.NoError(t, err)

	s, ok := c.Symptom("headache")
	require.True(t, ok)
	require.Len(t, s.Followups, 2)
	assert.Equal(t, "fq_z_last_alphabetically", s.Followups[0].ID)
	assert.Equal(t, "fq_a_first_alphabetically", s.Followups[1].ID)
	assert.Equal(t, DefaultUrgency, s.DefaultUrgency)
	for _, q := range s.Followups {
		assert.True(t, q.IsCompulsory, "followups are always compulsory")
	}
	assert.Equal(t, []Option{{ID: "a", Label: "Option A"}, {ID: "b_option", Label: "B Option"}}, s.Followups[1].Options)
}

func TestParse_DefaultsDesignatedQuestions(t *testing.T) {
	c, err := Parse([]byte(testQuestionnaire), []byte(testDecisionTree))
	require.NoError(t, err)
	assert.Equal(t, "q_gender", c.GenderQuestion())
	assert.Equal(t, "q_current_ailment", c.ChiefComplaintQuestion())
}

func TestOptionLabels(t *testing.T) {
	c, err := Parse([]byte(testQuestionnaire), []byte(testDecisionTree))
	require.NoError(t, err)

	q, ok := c.Question("q_pregnant")
	require.True(t, ok)
	assert.Equal(t, []Option{
		{ID: "yes", Label: "Yes"},
		{ID: "no", Label: "No"},
		{ID: "not_sure", Label: "Not Sure"},
	}, q.Options)
}

func TestConditionalQuestions(t *testing.T) {
	c, err := Parse([]byte(testQuestionnaire), []byte(testDecisionTree))
	require.NoError(t, err)

	assert.Empty(t, c.ConditionalQuestions(map[string]string{}))
	assert.Empty(t, c.ConditionalQuestions(map[string]string{"q_gender": "male"}))

	got := c.ConditionalQuestions(map[string]string{"q_gender": "FeMaLe"})
	require.Len(t, got, 1)
	assert.Equal(t, "q_pregnant", got[0].ID)

	list := c.QuestionList(map[string]string{"q_gender": "female"})
	ids := make([]string, 0, len(list))
	for _, q := range list {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"q_gender", "q_current_ailment", "q_pregnant"}, ids)
}

func TestBaseQuestionsReturnsCopy(t *testing.T) {
	c, err := Parse([]byte(testQuestionnaire), []byte(testDecisionTree))
	require.NoError(t, err)

	qs := c.BaseQuestions()
	qs[0].ID = "mutated"
	assert.Equal(t, "q_gender", c.BaseQuestions()[0].ID)
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name          string
		questionnaire string
		tree          string
		want          string
	}{
		{
			name:          "bad trigger key",
			questionnaire: `{"questions":[{"id":"q_gender","text":"g","type":"text"},{"id":"q_current_ailment","text":"c","type":"text"}],"conditional":{"q_gender":[{"id":"q_x","text":"x","type":"text"}]}}`,
			tree:          testDecisionTree,
			want:          "not of the form",
		},
		{
			name:          "trigger on unknown question",
			questionnaire: `{"questions":[{"id":"q_gender","text":"g","type":"text"},{"id":"q_current_ailment","text":"c","type":"text"}],"conditional":{"q_sex=female":[{"id":"q_x","text":"x","type":"text"}]}}`,
			tree:          testDecisionTree,
			want:          "unknown base question",
		},
		{
			name:          "missing chief complaint question",
			questionnaire: `{"questions":[{"id":"q_gender","text":"g","type":"text"}]}`,
			tree:          testDecisionTree,
			want:          "chief complaint question",
		},
		{
			name:          "symptom without followups",
			questionnaire: testQuestionnaire,
			tree:          `{"symptom_decision_tree":{"symptoms":[{"symptom_id":"fever","label":"Fever","keywords":["fever"]}]}}`,
			want:          "no followup questions",
		},
		{
			name:          "choice without options",
			questionnaire: `{"questions":[{"id":"q_gender","text":"g","type":"single_choice"},{"id":"q_current_ailment","text":"c","type":"text"}]}`,
			tree:          testDecisionTree,
			want:          "has no options",
		},
		{
			name:          "duplicate ids",
			questionnaire: `{"questions":[{"id":"q_gender","text":"g","type":"text"},{"id":"q_gender","text":"g","type":"text"},{"id":"q_current_ailment","text":"c","type":"text"}]}`,
			tree:          testDecisionTree,
			want:          "already used",
		},
		{
			name:          "followup collides with questionnaire",
			questionnaire: testQuestionnaire,
			tree:          `{"symptom_decision_tree":{"symptoms":[{"symptom_id":"fever","label":"Fever","keywords":["fever"],"followup_questions":{"q_gender":{"question":"x","type":"text"}}}]}}`,
			want:          "collides",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.questionnaire), []byte(tc.tree))
			require.Error(t, err)
			assert.True(t, IsInvalid(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		QuestionnaireFile: {Data: []byte(testQuestionnaire)},
		DecisionTreeFile:  {Data: []byte(testDecisionTree)},
	}
	c, err := Load(fsys)
	require.NoError(t, err)
	assert.Len(t, c.BaseQuestions(), 2)

	_, err = Load(fstest.MapFS{QuestionnaireFile: {Data: []byte(testQuestionnaire)}})
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, c.BaseQuestions())
	assert.NotEmpty(t, c.Symptoms())

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, c, again)

	// chest pain must be checked before any broader pain keyword
	assert.Equal(t, "chest_pain", c.Symptoms()[0].ID)
}
