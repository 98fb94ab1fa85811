package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/antidup"
	"horse.fit/sportwire/internal/compose"
	"horse.fit/sportwire/internal/config"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/telegram"
)

const (
	// ItemTypeStory is the queue item type for story posts.
	ItemTypeStory = "story"
	// ItemTypeArticle is the queue item type for standalone article posts.
	ItemTypeArticle = "article"

	// enqueueLookback bounds which stories a scheduler pass considers.
	enqueueLookback = 24 * time.Hour
	enqueueLimit    = 100

	// storyFetchLimit over-fetches members so the duplicate filter has
	// spares to re-admit.
	storyFetchLimit = 25
)

// Scheduler drives the publish queue: enqueueing recent stories and
// dispatching due rows under the pacing gates.
type Scheduler struct {
	pool   *db.Pool
	cfg    *config.Config
	sender *telegram.Sender
	log    zerolog.Logger

	loc        *time.Location
	quietStart int
	quietEnd   int
	mode       string
}

// SetMode selects the parse mode dispatched posts are rendered in. The
// default is HTML.
func (s *Scheduler) SetMode(mode string) {
	s.mode = mode
}

// NewScheduler wires a scheduler. Config is assumed validated.
func NewScheduler(pool *db.Pool, cfg *config.Config, sender *telegram.Sender, log zerolog.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	quietStart, quietEnd, err := config.ParseQuietHours(cfg.PublishQuietHours)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		pool:       pool,
		cfg:        cfg,
		sender:     sender,
		log:        log.With().Str("component", "publish").Logger(),
		loc:        loc,
		quietStart: quietStart,
		quietEnd:   quietEnd,
		mode:       compose.ModeHTML,
	}, nil
}

// EnqueueResult summarizes one enqueue pass.
type EnqueueResult struct {
	Considered int
	Enqueued   int
	Skipped    int
}

// EnqueueRecentStories queues recently updated stories for publication.
// A story whose dedup key was enqueued or sent inside the dedup window is
// skipped.
func (s *Scheduler) EnqueueRecentStories(ctx context.Context) (EnqueueResult, error) {
	now := globaltime.Now().UTC()
	stories, err := s.pool.ListRecentStories(ctx, now.Add(-enqueueLookback), enqueueLimit)
	if err != nil {
		return EnqueueResult{}, err
	}

	dedupSince := now.AddDate(0, 0, -s.cfg.DedupWindowDays)
	result := EnqueueResult{Considered: len(stories)}

	for _, story := range stories {
		dedupKey := fmt.Sprintf("story:%d", story.StoryID)
		seen, err := s.pool.HasRecentDedup(ctx, dedupKey, dedupSince)
		if err != nil {
			return result, err
		}
		if seen {
			result.Skipped++
			s.log.Debug().
				Int64("story_id", story.StoryID).
				Str("reason", "dedup").
				Msg("story skipped")
			continue
		}

		if _, err := s.pool.EnqueueItem(ctx, ItemTypeStory, story.StoryID, 0, nil, dedupKey); err != nil {
			return result, err
		}
		result.Enqueued++
		s.log.Info().Int64("story_id", story.StoryID).Msg("story enqueued")
	}

	s.log.Info().
		Int("considered", result.Considered).
		Int("enqueued", result.Enqueued).
		Int("skipped", result.Skipped).
		Msg("enqueue pass finished")
	return result, nil
}

// EnqueueOne queues a single story or article for publication, honoring
// the dedup window. already is true when an equal dedup key was queued or
// sent within the window; the returned queue id is zero in that case.
func (s *Scheduler) EnqueueOne(ctx context.Context, itemType string, itemID int64, priority int) (int64, bool, error) {
	if itemType != ItemTypeStory && itemType != ItemTypeArticle {
		return 0, false, fmt.Errorf("unknown item type %q", itemType)
	}

	now := globaltime.Now().UTC()
	dedupKey := fmt.Sprintf("%s:%d", itemType, itemID)
	seen, err := s.pool.HasRecentDedup(ctx, dedupKey, now.AddDate(0, 0, -s.cfg.DedupWindowDays))
	if err != nil {
		return 0, false, err
	}
	if seen {
		return 0, true, nil
	}

	queueID, err := s.pool.EnqueueItem(ctx, itemType, itemID, priority, nil, dedupKey)
	if err != nil {
		return 0, false, err
	}
	s.log.Info().
		Str("item_type", itemType).
		Int64("item_id", itemID).
		Int64("queue_id", queueID).
		Msg("item enqueued")
	return queueID, false, nil
}

// ProcessResult reports what one dispatch pass did.
type ProcessResult struct {
	Dispatched bool
	QueueID    int64
	MessageID  int64
	Blocked    string
}

// ProcessOnce dispatches at most one due queue row, respecting quiet hours
// and the interval, hourly, and daily rate gates. Every dequeued row ends
// terminal: sent on success, error on failure.
func (s *Scheduler) ProcessOnce(ctx context.Context) (ProcessResult, error) {
	now := globaltime.Now().UTC()
	localHour := now.In(s.loc).Hour()

	lastSentAt, err := s.pool.LastSentAt(ctx)
	if err != nil {
		return ProcessResult{}, err
	}
	sentHour, err := s.pool.CountSentSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return ProcessResult{}, err
	}
	sentDay, err := s.pool.CountSentSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return ProcessResult{}, err
	}

	gate := EvaluateGates(now, localHour, lastSentAt, sentHour, sentDay, GateConfig{
		Interval:   time.Duration(s.cfg.PublishIntervalSec) * time.Second,
		MaxPerHour: int64(s.cfg.PublishMaxPerHour),
		MaxPerDay:  int64(s.cfg.PublishMaxPerDay),
		QuietStart: s.quietStart,
		QuietEnd:   s.quietEnd,
	})
	if gate != "" {
		s.log.Debug().Str("gate", gate).Msg("dispatch blocked")
		return ProcessResult{Blocked: gate}, nil
	}

	item, found, err := s.pool.NextQueued(ctx, now)
	if err != nil {
		return ProcessResult{}, err
	}
	if !found {
		return ProcessResult{}, nil
	}

	msg, err := s.renderItem(ctx, item)
	if err != nil {
		// A row that cannot be rendered would block the queue forever.
		if markErr := s.pool.MarkQueueError(ctx, item.QueueID, err.Error()); markErr != nil {
			return ProcessResult{}, markErr
		}
		s.log.Error().
			Int64("queue_id", item.QueueID).
			Err(err).
			Msg("queue item failed to render")
		return ProcessResult{QueueID: item.QueueID}, nil
	}

	ref, err := sendChunked(ctx, s.sender, s.cfg.ChannelID, msg)
	if err != nil {
		if markErr := s.pool.MarkQueueError(ctx, item.QueueID, err.Error()); markErr != nil {
			return ProcessResult{}, markErr
		}
		s.log.Error().
			Int64("queue_id", item.QueueID).
			Err(err).
			Msg("queue item send failed")
		return ProcessResult{QueueID: item.QueueID}, nil
	}

	sentAt := globaltime.Now().UTC()
	if err := s.pool.MarkQueueSent(ctx, item.QueueID, ref.MessageID, sentAt); err != nil {
		return ProcessResult{}, err
	}
	if err := s.pool.UpsertPublishMap(ctx, db.PublishMapRecord{
		ItemType:  item.ItemType,
		ItemID:    item.ItemID,
		MessageID: ref.MessageID,
		Text:      msg.Text,
		Mode:      msg.Mode,
		SentAt:    sentAt,
	}); err != nil {
		return ProcessResult{}, err
	}

	s.log.Info().
		Int64("queue_id", item.QueueID).
		Str("item_type", item.ItemType).
		Int64("item_id", item.ItemID).
		Int64("message_id", ref.MessageID).
		Msg("queue item published")

	return ProcessResult{Dispatched: true, QueueID: item.QueueID, MessageID: ref.MessageID}, nil
}

// sendChunked posts a rendered message, splitting it at the Bot API
// length limit. Follow-up chunks reply to the first so long stories stay
// threaded, and the first chunk's id is the anchor recorded in
// publish_map.
func sendChunked(ctx context.Context, sender *telegram.Sender, chatID string, msg compose.Message) (telegram.MessageRef, error) {
	chunks := compose.SplitIntoChunks(msg.Text, compose.TelegramLimit)
	if len(chunks) == 0 {
		return telegram.MessageRef{}, fmt.Errorf("nothing to send")
	}

	anchor, err := sender.Send(ctx, telegram.SendMessageRequest{
		ChatID:                chatID,
		Text:                  chunks[0],
		ParseMode:             msg.Mode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return telegram.MessageRef{}, err
	}

	for _, chunk := range chunks[1:] {
		_, err := sender.Send(ctx, telegram.SendMessageRequest{
			ChatID:                chatID,
			Text:                  chunk,
			ParseMode:             msg.Mode,
			ReplyToMessageID:      &anchor.MessageID,
			DisableWebPagePreview: true,
		})
		if err != nil {
			return anchor, fmt.Errorf("send follow-up chunk: %w", err)
		}
	}
	return anchor, nil
}

func (s *Scheduler) renderItem(ctx context.Context, item db.QueueItem) (compose.Message, error) {
	switch item.ItemType {
	case ItemTypeStory:
		return s.renderStory(ctx, item.ItemID)
	case ItemTypeArticle:
		return s.renderArticle(ctx, item.ItemID)
	default:
		return compose.Message{}, fmt.Errorf("unknown queue item type %q", item.ItemType)
	}
}

func (s *Scheduler) renderStory(ctx context.Context, storyID int64) (compose.Message, error) {
	story, err := s.pool.GetStory(ctx, storyID)
	if err != nil {
		return compose.Message{}, fmt.Errorf("load story %d: %w", storyID, err)
	}

	articles, err := s.pool.ListStoryArticles(ctx, storyID, storyFetchLimit)
	if err != nil {
		return compose.Message{}, err
	}
	total, err := s.pool.CountStoryArticles(ctx, storyID)
	if err != nil {
		return compose.Message{}, err
	}

	visible, hidden := filterStoryArticles(articles)
	selected := compose.SelectStoryItems(visible, hidden)

	items := make([]compose.ItemView, 0, len(selected))
	for _, item := range selected {
		withTags, err := s.attachTags(ctx, item)
		if err != nil {
			return compose.Message{}, err
		}
		items = append(items, withTags)
	}

	return compose.Story(compose.StoryView{
		Title:         story.Title,
		Items:         items,
		TotalArticles: total,
	}, s.mode), nil
}

func (s *Scheduler) renderArticle(ctx context.Context, newsID int64) (compose.Message, error) {
	article, err := s.pool.GetArticle(ctx, newsID)
	if err != nil {
		return compose.Message{}, fmt.Errorf("load article %d: %w", newsID, err)
	}
	item, err := s.attachTags(ctx, compose.ItemView{NewsID: article.NewsID, Title: article.Title, URL: article.URL})
	if err != nil {
		return compose.Message{}, err
	}
	return compose.Article(item, s.mode), nil
}

func (s *Scheduler) attachTags(ctx context.Context, item compose.ItemView) (compose.ItemView, error) {
	return attachItemTags(ctx, s.pool, item)
}

type articleTagLister interface {
	ListArticleTags(ctx context.Context, newsID int64) ([]db.TagRecord, error)
}

// attachItemTags loads the typed tags of the article behind an item view.
func attachItemTags(ctx context.Context, pool articleTagLister, item compose.ItemView) (compose.ItemView, error) {
	if item.NewsID == 0 {
		return item, nil
	}
	tagList, err := pool.ListArticleTags(ctx, item.NewsID)
	if err != nil {
		return item, err
	}
	for _, tag := range tagList {
		if tag.Type == "unknown" {
			continue
		}
		item.Tags = append(item.Tags, compose.TagView{Name: tag.Name, Type: tag.Type})
	}
	return item, nil
}

// filterStoryArticles runs the near-duplicate filter over a story's members
// and splits them into visible and hidden item views, preserving order.
// Articles without a fingerprint cannot be compared and stay visible.
func filterStoryArticles(articles []db.StoryArticleItem) (visible, hidden []compose.ItemView) {
	candidates := make([]antidup.Candidate, 0, len(articles))
	for _, a := range articles {
		if a.TitleSig == nil || *a.TitleSig == "" {
			continue
		}
		entitySig := ""
		if a.EntitySig != nil {
			entitySig = *a.EntitySig
		}
		candidates = append(candidates, antidup.Candidate{
			ID:        a.NewsID,
			TitleSig:  *a.TitleSig,
			EntitySig: entitySig,
		})
	}

	_, dropped := antidup.Filter(candidates)
	droppedIDs := make(map[int64]struct{}, len(dropped))
	for _, c := range dropped {
		droppedIDs[c.ID] = struct{}{}
	}

	for _, a := range articles {
		view := compose.ItemView{NewsID: a.NewsID, Title: a.Title, URL: a.URL}
		if _, isDup := droppedIDs[a.NewsID]; isDup {
			hidden = append(hidden, view)
		} else {
			visible = append(visible, view)
		}
	}
	return visible, hidden
}

// Loop runs dispatch passes on a fixed cadence until the context ends.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("publish loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("publish loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ProcessOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("publish pass failed")
			}
		}
	}
}
