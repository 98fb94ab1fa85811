package publish

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/telegram"
)

// Edit actions recorded in the audit trail.
const (
	ActionEdit   = "edit"
	ActionAppend = "append"
)

// EditorStore is the persistence surface the editor needs. *db.Pool
// implements it.
type EditorStore interface {
	GetPublishMap(ctx context.Context, itemType string, itemID int64) (db.PublishMapRecord, bool, error)
	InsertPublishEdit(ctx context.Context, rec db.PublishEditRecord) (int64, error)
	UpdatePublishMapText(ctx context.Context, itemType string, itemID int64, text, mode string) error
	LastAppendText(ctx context.Context, itemType string, itemID int64) (string, bool, error)
	GetStory(ctx context.Context, storyID int64) (db.StoryRecord, error)
	ListStoryArticles(ctx context.Context, storyID int64, limit int) ([]db.StoryArticleItem, error)
	CountStoryArticles(ctx context.Context, storyID int64) (int, error)
	ListArticleTags(ctx context.Context, newsID int64) ([]db.TagRecord, error)
}

// Editor applies post-publish modifications to channel messages.
type Editor struct {
	pool   EditorStore
	cfg    *config.Config
	sender *telegram.Sender
	log    zerolog.Logger
}

// NewEditor wires an editor over the shared pool and sender.
func NewEditor(pool EditorStore, cfg *config.Config, sender *telegram.Sender, log zerolog.Logger) *Editor {
	return &Editor{
		pool:   pool,
		cfg:    cfg,
		sender: sender,
		log:    log.With().Str("component", "edit").Logger(),
	}
}

func validateMessageLength(text string) error {
	if n := utf8.RuneCountInString(text); n > compose.TelegramLimit {
		return fmt.Errorf("message text is %d characters, limit is %d", n, compose.TelegramLimit)
	}
	return nil
}

// Update render variants.
const (
	RenderShort = "short"
	RenderFull  = "full"
)

// RenderUpdate builds update text for a published story from its current
// members. The short variant lists the articles added since the anchor
// message was sent; the full variant re-renders the story capped to the
// usual update size. Only stories can be rendered this way.
func (e *Editor) RenderUpdate(ctx context.Context, itemType string, itemID int64, variant string) (string, string, error) {
	if itemType != ItemTypeStory {
		return "", "", fmt.Errorf("from-render supports stories only, got %q", itemType)
	}
	if variant != RenderShort && variant != RenderFull {
		return "", "", fmt.Errorf("unknown render variant %q", variant)
	}

	rec, found, err := e.pool.GetPublishMap(ctx, itemType, itemID)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", fmt.Errorf("story %d has never been published", itemID)
	}

	story, err := e.pool.GetStory(ctx, itemID)
	if err != nil {
		return "", "", fmt.Errorf("load story %d: %w", itemID, err)
	}
	articles, err := e.pool.ListStoryArticles(ctx, itemID, storyFetchLimit)
	if err != nil {
		return "", "", err
	}
	total, err := e.pool.CountStoryArticles(ctx, itemID)
	if err != nil {
		return "", "", err
	}

	visible, hidden := filterStoryArticles(articles)
	selected := compose.SelectStoryItems(visible, hidden)
	items := make([]compose.ItemView, 0, len(selected))
	for _, item := range selected {
		withTags, err := attachItemTags(ctx, e.pool, item)
		if err != nil {
			return "", "", err
		}
		items = append(items, withTags)
	}
	view := compose.StoryView{Title: story.Title, Items: items, TotalArticles: total}

	var newItems []compose.ItemView
	if variant == RenderShort {
		for _, a := range articles {
			if a.PublishedAt == nil || !a.PublishedAt.After(rec.SentAt) {
				continue
			}
			newItems = append(newItems, compose.ItemView{NewsID: a.NewsID, Title: a.Title, URL: a.URL})
			if len(newItems) == compose.UpdateShortLimit {
				break
			}
		}
		if len(newItems) == 0 {
			return "", "", fmt.Errorf("story %d has no articles newer than the published message", itemID)
		}
	}

	msg := compose.StoryUpdate(view, newItems, rec.Mode)
	return msg.Text, msg.Mode, nil
}

// Edit rewrites the anchor message of a published item. The new text
// replaces the stored text and an audit row is appended. A failed edit is
// still audited, with the error recorded, before the error is returned.
// Identical text draws a warning but the edit is dispatched anyway.
func (e *Editor) Edit(ctx context.Context, itemType string, itemID int64, newText, mode string) error {
	if err := validateMessageLength(newText); err != nil {
		return err
	}

	rec, found, err := e.pool.GetPublishMap(ctx, itemType, itemID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %d has never been published", itemType, itemID)
	}

	if mode == "" {
		mode = rec.Mode
	}
	if newText == rec.Text {
		e.log.Warn().
			Str("item_type", itemType).
			Int64("item_id", itemID).
			Msg("edit text identical to published text")
	}

	editErr := e.sender.Edit(ctx, e.cfg.ChannelID, rec.MessageID, newText, mode)

	audit := db.PublishEditRecord{
		ItemType:  itemType,
		ItemID:    itemID,
		Action:    ActionEdit,
		MessageID: &rec.MessageID,
		OldText:   &rec.Text,
		NewText:   &newText,
		Mode:      &mode,
	}
	if editErr != nil {
		msg := editErr.Error()
		audit.Error = &msg
	}
	if _, err := e.pool.InsertPublishEdit(ctx, audit); err != nil {
		return err
	}
	if editErr != nil {
		return editErr
	}

	if err := e.pool.UpdatePublishMapText(ctx, itemType, itemID, newText, mode); err != nil {
		return err
	}

	e.log.Info().
		Str("item_type", itemType).
		Int64("item_id", itemID).
		Int64("message_id", rec.MessageID).
		Msg("published message edited")
	return nil
}

// Append posts a reply under the anchor message of a published item. The
// anchor itself is never modified. A repeat of the most recent successful
// append draws a warning but is still posted.
func (e *Editor) Append(ctx context.Context, itemType string, itemID int64, text, mode string) error {
	if err := validateMessageLength(text); err != nil {
		return err
	}

	rec, found, err := e.pool.GetPublishMap(ctx, itemType, itemID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %d has never been published", itemType, itemID)
	}

	if mode == "" {
		mode = rec.Mode
	}
	lastText, hasLast, err := e.pool.LastAppendText(ctx, itemType, itemID)
	if err != nil {
		return err
	}
	if hasLast && lastText == text {
		e.log.Warn().
			Str("item_type", itemType).
			Int64("item_id", itemID).
			Msg("append text repeats the last append")
	}

	ref, sendErr := e.sender.Send(ctx, telegram.SendMessageRequest{
		ChatID:                e.cfg.ChannelID,
		Text:                  text,
		ParseMode:             mode,
		ReplyToMessageID:      &rec.MessageID,
		DisableWebPagePreview: true,
	})

	audit := db.PublishEditRecord{
		ItemType:  itemType,
		ItemID:    itemID,
		Action:    ActionAppend,
		MessageID: &rec.MessageID,
		NewText:   &text,
		Mode:      &mode,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		audit.Error = &msg
	} else {
		audit.ReplyMessageID = &ref.MessageID
	}
	if _, err := e.pool.InsertPublishEdit(ctx, audit); err != nil {
		return err
	}
	if sendErr != nil {
		return sendErr
	}

	e.log.Info().
		Str("item_type", itemType).
		Int64("item_id", itemID).
		Int64("anchor_message_id", rec.MessageID).
		Int64("reply_message_id", ref.MessageID).
		Msg("append posted under published message")
	return nil
}
