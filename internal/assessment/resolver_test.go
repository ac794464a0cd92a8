package assessment

import (
	"errors"
	"testing"

	"medical-assessment/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FemaleHeadacheWalkthrough(t *testing.T) {
	r := NewResolver(testCatalog(t))
	state := State{Phase: PhaseQuestionnaire}
	answers := map[string]string{}

	res, err := r.Resolve(state, answers)
	require.NoError(t, err)
	require.NotNil(t, res.Question)
	assert.Equal(t, "q_gender", res.Question.ID)
	assert.Equal(t, Progress{Current: 1, Total: 2}, res.Progress)

	answers["q_gender"] = "Female"
	res, err = r.Resolve(state, answers)
	require.NoError(t, err)
	assert.Equal(t, "q_current_ailment", res.Question.ID)
	assert.Equal(t, Progress{Current: 2, Total: 3}, res.Progress)

	answers["q_current_ailment"] = "bad headache"
	res, err = r.Resolve(state, answers)
	require.NoError(t, err)
	assert.Equal(t, "q_pregnant", res.Question.ID)
	assert.Equal(t, PhaseQuestionnaire, res.Phase)
	assert.Empty(t, res.Symptom)

	answers["q_pregnant"] = "No"
	res, err = r.Resolve(state, answers)
	require.NoError(t, err)
	assert.Equal(t, PhaseFollowup, res.Phase)
	assert.Equal(t, "headache", res.Symptom)
	require.NotNil(t, res.Match)
	assert.Equal(t, "headache", res.Match.MatchedKeyword)
	require.NotNil(t, res.Question)
	assert.Equal(t, "fq_headache_onset", res.Question.ID)
	assert.True(t, res.Question.IsCompulsory)
	assert.Equal(t, Progress{Current: 1, Total: 2}, res.Progress)
	assert.True(t, res.Changed(state))

	state = State{Phase: res.Phase, Symptom: res.Symptom}
	answers["fq_headache_onset"] = "Yes"
	res, err = r.Resolve(state, answers)
	require.NoError(t, err)
	assert.Equal(t, "fq_headache_nausea", res.Question.ID)
	assert.False(t, res.Changed(state))

	answers["fq_headache_nausea"] = "No"
	res, err = r.Resolve(state, answers)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Question)
	assert.Equal(t, PhaseFollowup, res.Phase)
}

func TestResolve_NoSymptomCompletesInQuestionnaire(t *testing.T) {
	r := NewResolver(testCatalog(t))
	res, err := r.Resolve(State{Phase: PhaseQuestionnaire}, map[string]string{
		"q_gender":          "male",
		"q_current_ailment": "feeling fine",
	})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Nil(t, res.Question)
	assert.Equal(t, PhaseQuestionnaire, res.Phase)
	assert.Empty(t, res.Symptom)
	assert.Nil(t, res.Match)
}

func TestResolve_ConditionalQuestionsFollowGender(t *testing.T) {
	r := NewResolver(testCatalog(t))
	for _, gender := range []string{"female", "FEMALE", "Female"} {
		res, err := r.Resolve(State{}, map[string]string{"q_gender": gender, "q_current_ailment": "x"})
		require.NoError(t, err)
		require.NotNil(t, res.Question, gender)
		assert.Equal(t, "q_pregnant", res.Question.ID, gender)
	}
	for _, gender := range []string{"male", "", "femalex"} {
		res, err := r.Resolve(State{}, map[string]string{"q_gender": gender, "q_current_ailment": "x"})
		require.NoError(t, err)
		assert.True(t, res.Completed, gender)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(testCatalog(t))
	answers := map[string]string{"q_gender": "female"}
	state := State{Phase: PhaseQuestionnaire}

	first, err := r.Resolve(state, answers)
	require.NoError(t, err)
	second, err := r.Resolve(state, answers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]string{"q_gender": "female"}, answers, "inputs are not mutated")
}

func TestResolve_FollowupNeverReturnsToQuestionnaire(t *testing.T) {
	r := NewResolver(testCatalog(t))
	// Questionnaire answers are incomplete, but the session already moved on.
	res, err := r.Resolve(State{Phase: PhaseFollowup, Symptom: "chest_pain"}, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, PhaseFollowup, res.Phase)
	assert.Equal(t, "fq_chest_radiation", res.Question.ID)
	require.NotNil(t, res.Match)
	assert.Equal(t, "Chest Pain", res.Match.Label)
}

func TestResolve_KeepsRecordedSymptom(t *testing.T) {
	r := NewResolver(testCatalog(t))
	// The complaint now reads differently, the recorded symptom still drives follow-ups.
	res, err := r.Resolve(State{Phase: PhaseFollowup, Symptom: "headache"}, map[string]string{
		"q_gender":          "male",
		"q_current_ailment": "chest pain",
	})
	require.NoError(t, err)
	assert.Equal(t, "headache", res.Symptom)
	assert.Equal(t, "fq_headache_onset", res.Question.ID)
}

func TestResolve_FollowupWithoutSymptomIsInconsistent(t *testing.T) {
	r := NewResolver(testCatalog(t))
	res, err := r.Resolve(State{Phase: PhaseFollowup}, map[string]string{})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.Inconsistent)
}

func TestResolve_UnknownSymptomIsConfigurationError(t *testing.T) {
	r := NewResolver(testCatalog(t))
	_, err := r.Resolve(State{Phase: PhaseFollowup, Symptom: "removed_symptom"}, map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "removed_symptom", cfgErr.SymptomID)
}

func TestResolve_UnknownPhase(t *testing.T) {
	r := NewResolver(testCatalog(t))
	_, err := r.Resolve(State{Phase: "triage"}, map[string]string{})
	assert.Error(t, err)
}

func TestResolve_AnsweredSetGrowsByOne(t *testing.T) {
	r := NewResolver(testCatalog(t))
	c := r.Catalog()
	answers := map[string]string{}
	state := State{Phase: PhaseQuestionnaire}

	steps := 0
	for {
		res, err := r.Resolve(state, answers)
		require.NoError(t, err)
		state = State{Phase: res.Phase, Symptom: res.Symptom}
		if res.Completed {
			break
		}
		_, seen := answers[res.Question.ID]
		require.False(t, seen, "question %s asked twice", res.Question.ID)

		before := len(answers)
		answers[res.Question.ID] = answerFor(res.Question)
		assert.Equal(t, before+1, len(answers))
		// Resubmitting an answer with a new value keeps the set size.
		answers[res.Question.ID] = answerFor(res.Question) + " (edited)"
		answers[res.Question.ID] = answerFor(res.Question)
		assert.Equal(t, before+1, len(answers))

		steps++
		require.Less(t, steps, 20)
	}
	assert.Equal(t, PhaseFollowup, state.Phase)
	assert.Equal(t, "headache", state.Symptom)
	assert.Len(t, answers, len(c.QuestionList(answers))+2)
}

func answerFor(q *catalog.Question) string {
	switch q.ID {
	case "q_gender":
		return "female"
	case "q_current_ailment":
		return "Migraine since Tuesday"
	}
	if len(q.Options) > 0 {
		return q.Options[0].Label
	}
	return "something"
}
