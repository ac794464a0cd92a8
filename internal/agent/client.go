package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medical-assessment/internal/report"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New returns the chat-completions generator when an API key is configured
// and the offline one otherwise.
func New(cfg Config, log *zap.Logger) report.Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.APIKey == "" {
		log.Warn("LLM_API_KEY not set, reports are generated offline")
		return NewOfflineGenerator()
	}
	return NewClient(cfg, log)
}

// Client writes reports through an OpenAI-compatible chat-completions API.
type Client struct {
	http  *resty.Client
	model string
	log   *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, model: cfg.Model, log: log.Named("agent")}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// reportContent is the JSON object the model is asked to return.
type reportContent struct {
	Summary        []string               `json:"summary"`
	PossibleCauses []report.PossibleCause `json:"possible_causes"`
	Advice         []string               `json:"advice"`
	UrgencyLevel   string                 `json:"urgency_level"`
}

func (c *Client) Generate(ctx context.Context, req report.Request) (*report.Report, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var out chatResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		c.log.Error("chat completion failed", zap.Int("status_code", resp.StatusCode()), zap.String("error", msg))
		return nil, fmt.Errorf("chat completion: %s", msg)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}
	c.log.Info("chat completion done",
		zap.String("session_id", req.SessionID.String()),
		zap.Duration("took", time.Since(start)),
	)

	content, err := parseContent(out.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return &report.Report{
		Summary:        content.Summary,
		PossibleCauses: content.PossibleCauses,
		Advice:         content.Advice,
		UrgencyLevel:   normalizeUrgency(content.UrgencyLevel),
	}, nil
}

// parseContent tolerates a fenced ```json block around the object.
func parseContent(s string) (*reportContent, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	var rc reportContent
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &rc); err != nil {
		return nil, fmt.Errorf("decode report content: %w", err)
	}
	for i := range rc.PossibleCauses {
		p := &rc.PossibleCauses[i]
		if p.Probability > 1 {
			p.Probability /= 100
		}
	}
	return &rc, nil
}

var urgencyLevels = map[string]bool{
	"red_emergency":       true,
	"yellow_doctor_visit": true,
	"green_self_care":     true,
}

// normalizeUrgency drops levels the clients do not know; the report service
// then falls back to the symptom default.
func normalizeUrgency(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if urgencyLevels[level] {
		return level
	}
	return ""
}
