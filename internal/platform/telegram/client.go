package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultAPIURL = "https://api.telegram.org"

type Client struct {
	http *resty.Client
}

// NewClient talks to the Bot API. apiURL may be empty.
func NewClient(token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	http := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", apiURL, token)).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &Client{http: http}
}

type sendMessageReq struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendMessageReq{ChatID: chatID, Text: text}).
		SetResult(&out).
		SetError(&out).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return check(resp, out)
}

// SendDocument uploads fileData as a document named fileName.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}).
		SetFileReader("document", fileName, bytes.NewReader(fileData)).
		SetResult(&out).
		SetError(&out).
		Post("/sendDocument")
	if err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	return check(resp, out)
}

func check(resp *resty.Response, out apiResponse) error {
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram api returned status: %s, body: %s", resp.Status(), out.Description)
	}
	return nil
}
