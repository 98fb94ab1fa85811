package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/telegram"
)

// fakeEditorStore keeps the publish state of one item in memory.
type fakeEditorStore struct {
	rec        db.PublishMapRecord
	found      bool
	edits      []db.PublishEditRecord
	lastAppend string
	hasAppend  bool

	textUpdates int
}

func (f *fakeEditorStore) GetPublishMap(ctx context.Context, itemType string, itemID int64) (db.PublishMapRecord, bool, error) {
	return f.rec, f.found, nil
}

func (f *fakeEditorStore) InsertPublishEdit(ctx context.Context, rec db.PublishEditRecord) (int64, error) {
	f.edits = append(f.edits, rec)
	return int64(len(f.edits)), nil
}

func (f *fakeEditorStore) UpdatePublishMapText(ctx context.Context, itemType string, itemID int64, text, mode string) error {
	f.textUpdates++
	f.rec.Text = text
	f.rec.Mode = mode
	return nil
}

func (f *fakeEditorStore) LastAppendText(ctx context.Context, itemType string, itemID int64) (string, bool, error) {
	return f.lastAppend, f.hasAppend, nil
}

func (f *fakeEditorStore) GetStory(ctx context.Context, storyID int64) (db.StoryRecord, error) {
	return db.StoryRecord{StoryID: storyID}, nil
}

func (f *fakeEditorStore) ListStoryArticles(ctx context.Context, storyID int64, limit int) ([]db.StoryArticleItem, error) {
	return nil, nil
}

func (f *fakeEditorStore) CountStoryArticles(ctx context.Context, storyID int64) (int, error) {
	return 0, nil
}

func (f *fakeEditorStore) ListArticleTags(ctx context.Context, newsID int64) ([]db.TagRecord, error) {
	return nil, nil
}

// botCalls records what the stub Bot API received.
type botCalls struct {
	edits []map[string]any
	sends []map[string]any
}

func newEditorFixture(t *testing.T, store *fakeEditorStore) (*Editor, *botCalls) {
	t.Helper()

	calls := &botCalls{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/editMessageText"):
			calls.edits = append(calls.edits, payload)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			calls.sends = append(calls.sends, payload)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":900}}`)
	}))
	t.Cleanup(server.Close)

	client := telegram.NewClientWithBaseURL("test-token", server.URL)
	sender := telegram.NewSender(client, zerolog.Nop())
	cfg := &config.Config{ChannelID: "@channel"}

	return NewEditor(store, cfg, sender, zerolog.Nop()), calls
}

func publishedStore(text string) *fakeEditorStore {
	return &fakeEditorStore{
		rec: db.PublishMapRecord{
			ItemType:  ItemTypeStory,
			ItemID:    5,
			MessageID: 321,
			Text:      text,
			Mode:      compose.ModeHTML,
			SentAt:    time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC),
		},
		found: true,
	}
}

func TestEditIdenticalTextStillDispatches(t *testing.T) {
	t.Parallel()

	store := publishedStore("старый текст")
	editor, calls := newEditorFixture(t, store)

	if err := editor.Edit(context.Background(), ItemTypeStory, 5, "старый текст", ""); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if len(calls.edits) != 1 {
		t.Fatalf("expected 1 editMessageText call, got %d", len(calls.edits))
	}
	if got := calls.edits[0]["message_id"]; got != float64(321) {
		t.Fatalf("edit targeted message %v, want 321", got)
	}
	if len(store.edits) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(store.edits))
	}
	audit := store.edits[0]
	if audit.Action != ActionEdit || audit.Error != nil {
		t.Fatalf("unexpected audit row: %+v", audit)
	}
	if store.textUpdates != 1 {
		t.Fatalf("expected stored text refresh, got %d updates", store.textUpdates)
	}
	// The anchor id must survive an edit untouched.
	if store.rec.MessageID != 321 {
		t.Fatalf("anchor message id changed to %d", store.rec.MessageID)
	}
}

func TestEditRejectsOverlongText(t *testing.T) {
	t.Parallel()

	store := publishedStore("старый текст")
	editor, calls := newEditorFixture(t, store)

	long := strings.Repeat("ж", compose.TelegramLimit+1)
	if err := editor.Edit(context.Background(), ItemTypeStory, 5, long, ""); err == nil {
		t.Fatalf("expected length error")
	}
	if len(calls.edits) != 0 || len(store.edits) != 0 {
		t.Fatalf("overlong edit must not dispatch or audit")
	}
}

func TestEditUnpublishedItem(t *testing.T) {
	t.Parallel()

	editor, calls := newEditorFixture(t, &fakeEditorStore{})

	if err := editor.Edit(context.Background(), ItemTypeStory, 5, "текст", ""); err == nil {
		t.Fatalf("expected error for unpublished item")
	}
	if len(calls.edits) != 0 {
		t.Fatalf("unexpected dispatch for unpublished item")
	}
}

func TestAppendRepeatStillPosts(t *testing.T) {
	t.Parallel()

	store := publishedStore("анонс")
	store.lastAppend = "обновление"
	store.hasAppend = true
	editor, calls := newEditorFixture(t, store)

	if err := editor.Append(context.Background(), ItemTypeStory, 5, "обновление", ""); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(calls.sends) != 1 {
		t.Fatalf("expected 1 sendMessage call, got %d", len(calls.sends))
	}
	if got := calls.sends[0]["reply_to_message_id"]; got != float64(321) {
		t.Fatalf("append replied to %v, want anchor 321", got)
	}
	if len(store.edits) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(store.edits))
	}
	audit := store.edits[0]
	if audit.Action != ActionAppend {
		t.Fatalf("unexpected audit action: %q", audit.Action)
	}
	if audit.ReplyMessageID == nil || *audit.ReplyMessageID != 900 {
		t.Fatalf("unexpected reply message id: %+v", audit.ReplyMessageID)
	}
	// The anchor itself is never edited by an append.
	if len(calls.edits) != 0 {
		t.Fatalf("append must not touch the anchor message")
	}
}
