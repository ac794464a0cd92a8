// Package mqtt publishes assessment lifecycle events to a broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medical-assessment/internal/assessment"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Publisher implements assessment.EventPublisher. Each event goes to
// "<prefix>/<kind>" at QoS 1.
type Publisher struct {
	client paho.Client
	prefix string
	log    *zap.Logger
}

func NewPublisher(cfg Config, log *zap.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return newPublisher(client, cfg.TopicPrefix, log), nil
}

func newPublisher(client paho.Client, prefix string, log *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = "assessment"
	}
	return &Publisher{client: client, prefix: strings.TrimRight(prefix, "/"), log: log.Named("mqtt")}
}

func (p *Publisher) Topic(kind assessment.EventKind) string {
	return p.prefix + "/" + string(kind)
}

func (p *Publisher) Publish(ctx context.Context, e assessment.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	topic := p.Topic(e.Kind)
	token := p.client.Publish(topic, 1, false, payload)

	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to topic %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	p.log.Debug("event published", zap.String("topic", topic), zap.String("session_id", e.SessionID.String()))
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
