package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/telegram"
)

// newSenderStub returns a sender pointed at a stub Bot API that assigns
// increasing message ids and records every sendMessage payload.
func newSenderStub(t *testing.T) (*telegram.Sender, *[]map[string]any) {
	t.Helper()

	var sends []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		sends = append(sends, payload)
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, 500+len(sends))
	}))
	t.Cleanup(server.Close)

	client := telegram.NewClientWithBaseURL("test-token", server.URL)
	return telegram.NewSender(client, zerolog.Nop()), &sends
}

func TestSendChunkedThreadsLongText(t *testing.T) {
	t.Parallel()

	sender, sends := newSenderStub(t)

	line := strings.Repeat("ж", 1500)
	text := strings.Join([]string{line, line, line, line, line, line}, "\n")
	msg := compose.Message{Text: text, Mode: compose.ModeHTML}

	ref, err := sendChunked(context.Background(), sender, "@channel", msg)
	if err != nil {
		t.Fatalf("sendChunked: %v", err)
	}
	if len(*sends) < 2 {
		t.Fatalf("expected the text to be split, got %d sends", len(*sends))
	}
	if ref.MessageID != 501 {
		t.Fatalf("anchor must be the first chunk's id, got %d", ref.MessageID)
	}

	first := (*sends)[0]
	if _, has := first["reply_to_message_id"]; has {
		t.Fatalf("first chunk must not be a reply: %v", first)
	}
	for i, send := range (*sends)[1:] {
		if got := send["reply_to_message_id"]; got != float64(501) {
			t.Fatalf("chunk %d replied to %v, want anchor 501", i+2, got)
		}
	}
	for _, send := range *sends {
		if n := len([]rune(send["text"].(string))); n > compose.TelegramLimit {
			t.Fatalf("chunk exceeds limit: %d runes", n)
		}
	}
}

func TestSendChunkedShortTextSingleMessage(t *testing.T) {
	t.Parallel()

	sender, sends := newSenderStub(t)

	msg := compose.Message{Text: "Зенит победил Спартак", Mode: compose.ModeHTML}
	ref, err := sendChunked(context.Background(), sender, "@channel", msg)
	if err != nil {
		t.Fatalf("sendChunked: %v", err)
	}
	if len(*sends) != 1 {
		t.Fatalf("expected a single send, got %d", len(*sends))
	}
	if ref.MessageID != 501 {
		t.Fatalf("unexpected message id %d", ref.MessageID)
	}
	if _, has := (*sends)[0]["reply_to_message_id"]; has {
		t.Fatalf("short message must not be a reply")
	}
}
