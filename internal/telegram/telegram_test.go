package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewClientWithBaseURL("test-token", server.URL)
}

func TestSendMessageOK(t *testing.T) {
	t.Parallel()

	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ChatID != "@channel" || req.ParseMode != "HTML" {
			t.Errorf("unexpected request: %+v", req)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":421}}`)
	})

	ref, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:    "@channel",
		Text:      "привет",
		ParseMode: "HTML",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if ref.MessageID != 421 {
		t.Fatalf("unexpected message id: %d", ref.MessageID)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	t.Parallel()

	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is too long"}`)
	})

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: "@c", Text: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 400 {
		t.Fatalf("unexpected code: %d", apiErr.Code)
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	t.Parallel()

	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`)
	})

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: "@c", Text: "x"})
	var rateErr *RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rateErr.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected retry_after: %s", rateErr.RetryAfter)
	}
}

func TestSenderRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"ok":false,"error_code":429,"parameters":{"retry_after":1}}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":5}}`)
	})

	sender := NewSender(client, zerolog.Nop())
	sender.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	ref, err := sender.Send(context.Background(), SendMessageRequest{ChatID: "@c", Text: "x"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 5 {
		t.Fatalf("unexpected message id: %d", ref.MessageID)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSenderExhaustsRetries(t *testing.T) {
	t.Parallel()

	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"parameters":{"retry_after":1}}`)
	})

	sender := NewSender(client, zerolog.Nop())
	sender.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := sender.Send(context.Background(), SendMessageRequest{ChatID: "@c", Text: "x"})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
}

func TestSenderBubblesAPIErrorImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden"}`)
	})

	sender := NewSender(client, zerolog.Nop())
	_, err := sender.Send(context.Background(), SendMessageRequest{ChatID: "@c", Text: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestEditMessageText(t *testing.T) {
	t.Parallel()

	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/editMessageText" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":9}}`)
	})

	if err := client.EditMessageText(context.Background(), "@c", 9, "новый текст", "HTML"); err != nil {
		t.Fatalf("EditMessageText: %v", err)
	}
}
