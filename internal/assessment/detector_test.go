package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	d := NewDetector(testCatalog(t))

	tests := []struct {
		text    string
		want    string
		keyword string
	}{
		{"I have CHEST PAIN since this morning", "chest_pain", "chest pain"},
		{"  lower back pain ", "general_pain", "pain"},
		{"bad headache", "headache", "headache"},
		{"stomach ache", "general_pain", "ache"},
		{"Migraine again", "headache", "migraine"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m := d.Detect(tt.text)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.SymptomID)
			assert.Equal(t, tt.keyword, m.MatchedKeyword)
		})
	}
}

func TestDetect_NoMatch(t *testing.T) {
	d := NewDetector(testCatalog(t))
	assert.Nil(t, d.Detect("feeling fine"))
	assert.Nil(t, d.Detect(""))
	assert.Nil(t, d.Detect("   "))
}

func TestDetect_CarriesSymptomMetadata(t *testing.T) {
	m := NewDetector(testCatalog(t)).Detect("chest pain")
	require.NotNil(t, m)
	assert.Equal(t, "Chest Pain", m.Label)
	assert.Equal(t, "red_emergency", m.DefaultUrgency)
}
