package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medical-assessment/internal/assessment"
	"medical-assessment/internal/catalog"
	"medical-assessment/internal/report"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleRequest() report.Request {
	return report.Request{
		SessionID: uuid.New(),
		Owner:     "u",
		Topic:     "headache",
		Patient:   report.PatientInfo{Age: 30, Gender: "Female"},
		Responses: []assessment.QA{
			{Question: catalog.Question{ID: "q_current_ailment", Text: "What brings you here?"}, Answer: "headache"},
			{Question: catalog.Question{ID: "fq_onset", Text: "When did it start?"}, Answer: ""},
		},
		Symptom: &catalog.Symptom{ID: "headache", Label: "Headache", DefaultUrgency: "yellow_doctor_visit"},
	}
}

func TestClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		content := "```json\n" + `{"summary":["Headache"],"possible_causes":[{"id":"tension","title":"Tension headache","severity":"mild","probability":60}],"advice":["Rest"],"urgency_level":"GREEN_SELF_CARE"}` + "\n```"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/"}, zap.NewNop())
	rep, err := c.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "Q: When did it start?\n   A: unknown")
	assert.Equal(t, "json_object", got.ResponseFormat["type"])

	assert.Equal(t, []string{"Headache"}, rep.Summary)
	assert.Equal(t, "green_self_care", rep.UrgencyLevel)
	require.Len(t, rep.PossibleCauses, 1)
	assert.InDelta(t, 0.6, rep.PossibleCauses[0].Probability, 1e-9)
}

func TestClient_GenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, zap.NewNop())
	_, err := c.Generate(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestClient_GenerateBadContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"not json"}}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop()).Generate(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "decode report content")
}

func TestNew_WithoutKeyIsOffline(t *testing.T) {
	_, ok := New(Config{}, nil).(*OfflineGenerator)
	assert.True(t, ok)
	_, ok = New(Config{APIKey: "k"}, nil).(*Client)
	assert.True(t, ok)
}

func TestOfflineGenerator(t *testing.T) {
	rep, err := NewOfflineGenerator().Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "yellow_doctor_visit", rep.UrgencyLevel)
	assert.Equal(t, []string{"Main concern: headache.", "What brings you here: headache"}, rep.Summary)
	require.Len(t, rep.PossibleCauses, 1)
	assert.Equal(t, "moderate", rep.PossibleCauses[0].Severity)
	assert.NotEmpty(t, rep.Advice)

	req := sampleRequest()
	req.Symptom = nil
	rep, err = NewOfflineGenerator().Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultUrgency, rep.UrgencyLevel)
	assert.Empty(t, rep.PossibleCauses)
}
