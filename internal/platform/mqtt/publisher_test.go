package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"medical-assessment/internal/assessment"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient only implements Publish; other methods panic via the nil embed.
type fakeClient struct {
	paho.Client
	sent []published
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return fakeToken{err: c.err}
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "clinic/assessment/", zap.NewNop())

	e := assessment.Event{
		Kind:      assessment.EventCompleted,
		SessionID: uuid.New(),
		Owner:     "u",
		Status:    assessment.StatusCompleted,
		Phase:     assessment.PhaseFollowup,
		Symptom:   "headache",
		At:        time.Now().UTC(),
	}
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "clinic/assessment/completed", client.sent[0].topic)
	assert.Equal(t, byte(1), client.sent[0].qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, "completed", got["event"])
	assert.Equal(t, e.SessionID.String(), got["session_id"])
	assert.Equal(t, "headache", got["detected_symptom"])
}

func TestPublisher_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := newPublisher(client, "", zap.NewNop())
	assert.Equal(t, "assessment/started", p.Topic(assessment.EventStarted))

	err := p.Publish(context.Background(), assessment.Event{Kind: assessment.EventStarted})
	assert.ErrorContains(t, err, "not connected")
}
