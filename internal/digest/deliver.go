package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/telegram"
)

// Deliverer sends built digests to the channel and exports them to files.
type Deliverer struct {
	pool   *db.Pool
	sender *telegram.Sender
	loc    *time.Location
	log    zerolog.Logger
}

// NewDeliverer wires digest delivery.
func NewDeliverer(pool *db.Pool, sender *telegram.Sender, loc *time.Location, log zerolog.Logger) *Deliverer {
	if loc == nil {
		loc = time.UTC
	}
	return &Deliverer{
		pool:   pool,
		sender: sender,
		loc:    loc,
		log:    log.With().Str("component", "digest").Logger(),
	}
}

// SendToChannel posts the digest thread: the first message becomes the
// anchor and every following message replies to it. The anchor message id is
// recorded on the stored digest.
func (d *Deliverer) SendToChannel(ctx context.Context, digestID int64, result Result, chatID string, chunkSize int) error {
	messages := TelegramMessages(result, d.loc, chunkSize)
	if len(messages) == 0 {
		return fmt.Errorf("digest has no renderable messages")
	}

	root, err := d.sender.Send(ctx, telegram.SendMessageRequest{
		ChatID:                chatID,
		Text:                  messages[0].Text,
		ParseMode:             messages[0].Mode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		if markErr := d.pool.UpdateDigestStatus(ctx, digestID, "error", nil); markErr != nil {
			d.log.Error().Err(markErr).Msg("digest status update failed")
		}
		return err
	}

	for _, msg := range messages[1:] {
		if _, err := d.sender.Send(ctx, telegram.SendMessageRequest{
			ChatID:                chatID,
			Text:                  msg.Text,
			ParseMode:             msg.Mode,
			ReplyToMessageID:      &root.MessageID,
			DisableWebPagePreview: true,
		}); err != nil {
			return err
		}
	}

	messageID := strconv.FormatInt(root.MessageID, 10)
	if err := d.pool.UpdateDigestStatus(ctx, digestID, "sent", &messageID); err != nil {
		return err
	}

	d.log.Info().
		Int64("digest_id", digestID).
		Int64("message_id", root.MessageID).
		Int("messages", len(messages)).
		Msg("digest sent")
	return nil
}

// Export writes the digest to markdown and HTML files in dir and returns
// the written paths.
func (d *Deliverer) Export(result Result, dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	exports := []struct {
		extension string
		content   string
	}{
		{"md", Markdown(result, d.loc)},
		{"html", HTML(result, d.loc)},
	}

	paths := make([]string, 0, len(exports))
	for _, export := range exports {
		path := filepath.Join(dir, Filename(result, export.extension, d.loc))
		if err := os.WriteFile(path, []byte(export.content), 0o644); err != nil {
			return paths, fmt.Errorf("write %s export: %w", export.extension, err)
		}
		paths = append(paths, path)
	}

	d.log.Info().Strs("paths", paths).Msg("digest exported")
	return paths, nil
}

// Preview renders the digest thread without sending it, for dry runs.
func Preview(result Result, loc *time.Location, chunkSize int) []compose.Message {
	return TelegramMessages(result, loc, chunkSize)
}
