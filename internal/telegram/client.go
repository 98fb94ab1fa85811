package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// APIError is a non-retryable Bot API failure.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// RateLimitedError reports a 429 with the server-provided pause.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("telegram rate limited, retry after %s", e.RetryAfter)
}

// MessageRef identifies a sent channel message.
type MessageRef struct {
	MessageID int64
}

// Client is a minimal Bot API client covering sendMessage and
// editMessageText.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// SendMessageRequest is the payload for sendMessage.
type SendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	ReplyToMessageID      *int64 `json:"reply_to_message_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// SendMessage posts a new message and returns its id.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (MessageRef, error) {
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", req, &result); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{MessageID: result.MessageID}, nil
}

type editMessageRequest struct {
	ChatID                string `json:"chat_id"`
	MessageID             int64  `json:"message_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// EditMessageText rewrites the text of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID string, messageID int64, text, parseMode string) error {
	req := editMessageRequest{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
	}
	return c.call(ctx, "editMessageText", req, nil)
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}

	if !envelope.OK {
		if envelope.ErrorCode == http.StatusTooManyRequests {
			retryAfter := time.Second
			if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
				retryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
			}
			return &RateLimitedError{RetryAfter: retryAfter}
		}
		return &APIError{Code: envelope.ErrorCode, Description: envelope.Description}
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
