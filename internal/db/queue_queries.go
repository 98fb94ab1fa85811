package db

import (
	"context"
	"fmt"
	"time"
)

// QueueItem is one publish queue row.
type QueueItem struct {
	QueueID     int64      `json:"queue_id"`
	ItemType    string     `json:"item_type"`
	ItemID      int64      `json:"item_id"`
	Priority    int        `json:"priority"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	MessageID   *int64     `json:"message_id,omitempty"`
	Error       *string    `json:"error,omitempty"`
	DedupKey    string     `json:"dedup_key"`
}

// HasRecentDedup reports whether a non-errored queue row with the same dedup
// key was enqueued or sent at or after since.
func (p *Pool) HasRecentDedup(ctx context.Context, dedupKey string, since time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1
	FROM sport.publish_queue
	WHERE dedup_key = $1
	  AND status <> 'error'
	  AND COALESCE(sent_at, enqueued_at) >= $2
)
`
	var exists bool
	if err := p.QueryRow(ctx, q, dedupKey, since.UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("query dedup key: %w", err)
	}
	return exists, nil
}

// EnqueueItem inserts a queued publish row and returns its id.
func (p *Pool) EnqueueItem(ctx context.Context, itemType string, itemID int64, priority int, scheduledAt *time.Time, dedupKey string) (int64, error) {
	const q = `
INSERT INTO sport.publish_queue (item_type, item_id, priority, status, scheduled_at, dedup_key)
VALUES ($1, $2, $3, 'queued', $4, $5)
RETURNING queue_id
`
	var queueID int64
	if err := p.QueryRow(ctx, q, itemType, itemID, priority, scheduledAt, dedupKey).Scan(&queueID); err != nil {
		return 0, fmt.Errorf("enqueue item: %w", err)
	}
	return queueID, nil
}

// NextQueued returns the highest-priority due queue row, oldest first within
// a priority.
func (p *Pool) NextQueued(ctx context.Context, now time.Time) (QueueItem, bool, error) {
	const q = `
SELECT queue_id, item_type, item_id, priority, status, scheduled_at, enqueued_at, sent_at, message_id, error, dedup_key
FROM sport.publish_queue
WHERE status = 'queued'
  AND (scheduled_at IS NULL OR scheduled_at <= $1)
ORDER BY priority DESC, enqueued_at ASC, queue_id ASC
LIMIT 1
`
	var row QueueItem
	err := p.QueryRow(ctx, q, now.UTC()).Scan(
		&row.QueueID,
		&row.ItemType,
		&row.ItemID,
		&row.Priority,
		&row.Status,
		&row.ScheduledAt,
		&row.EnqueuedAt,
		&row.SentAt,
		&row.MessageID,
		&row.Error,
		&row.DedupKey,
	)
	if err != nil {
		if IsNoRows(err) {
			return QueueItem{}, false, nil
		}
		return QueueItem{}, false, fmt.Errorf("query next queued item: %w", err)
	}
	return row, true, nil
}

// LastSentAt returns the timestamp of the most recent successful send.
func (p *Pool) LastSentAt(ctx context.Context) (*time.Time, error) {
	const q = `
SELECT MAX(sent_at)
FROM sport.publish_queue
WHERE status = 'sent'
`
	var sentAt *time.Time
	if err := p.QueryRow(ctx, q).Scan(&sentAt); err != nil {
		return nil, fmt.Errorf("query last sent at: %w", err)
	}
	return sentAt, nil
}

// CountSentSince counts successful sends at or after since.
func (p *Pool) CountSentSince(ctx context.Context, since time.Time) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM sport.publish_queue
WHERE status = 'sent' AND sent_at >= $1
`
	var count int64
	if err := p.QueryRow(ctx, q, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sent since: %w", err)
	}
	return count, nil
}

// MarkQueueSent moves a queue row to its terminal sent state.
func (p *Pool) MarkQueueSent(ctx context.Context, queueID, messageID int64, sentAt time.Time) error {
	const q = `
UPDATE sport.publish_queue
SET status = 'sent', message_id = $2, sent_at = $3, error = NULL
WHERE queue_id = $1
`
	if _, err := p.Exec(ctx, q, queueID, messageID, sentAt.UTC()); err != nil {
		return fmt.Errorf("mark queue sent: %w", err)
	}
	return nil
}

// MarkQueueError moves a queue row to its terminal error state.
func (p *Pool) MarkQueueError(ctx context.Context, queueID int64, message string) error {
	const q = `
UPDATE sport.publish_queue
SET status = 'error', error = $2
WHERE queue_id = $1
`
	if _, err := p.Exec(ctx, q, queueID, message); err != nil {
		return fmt.Errorf("mark queue error: %w", err)
	}
	return nil
}

// QueueListOptions controls queue listing.
type QueueListOptions struct {
	Status string
	Limit  int
}

// ListQueue lists queue rows, optionally filtered by status.
func (p *Pool) ListQueue(ctx context.Context, opts QueueListOptions) ([]QueueItem, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT queue_id, item_type, item_id, priority, status, scheduled_at, enqueued_at, sent_at, message_id, error, dedup_key
FROM sport.publish_queue
WHERE ($1 = '' OR status = $1)
ORDER BY enqueued_at DESC, queue_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, opts.Status, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	items := make([]QueueItem, 0, opts.Limit)
	for rows.Next() {
		var row QueueItem
		if err := rows.Scan(
			&row.QueueID,
			&row.ItemType,
			&row.ItemID,
			&row.Priority,
			&row.Status,
			&row.ScheduledAt,
			&row.EnqueuedAt,
			&row.SentAt,
			&row.MessageID,
			&row.Error,
			&row.DedupKey,
		); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}

	return items, nil
}

// CountQueued returns the current queue depth.
func (p *Pool) CountQueued(ctx context.Context) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM sport.publish_queue
WHERE status = 'queued'
`
	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count queued: %w", err)
	}
	return count, nil
}

// PublishMapRecord is the current published state of one item.
type PublishMapRecord struct {
	ItemType  string    `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	MessageID int64     `json:"message_id"`
	Text      string    `json:"text"`
	Mode      string    `json:"mode"`
	SentAt    time.Time `json:"sent_at"`
}

// GetPublishMap loads the published state of one item.
func (p *Pool) GetPublishMap(ctx context.Context, itemType string, itemID int64) (PublishMapRecord, bool, error) {
	const q = `
SELECT item_type, item_id, message_id, text, mode, sent_at
FROM sport.publish_map
WHERE item_type = $1 AND item_id = $2
`
	var row PublishMapRecord
	err := p.QueryRow(ctx, q, itemType, itemID).Scan(
		&row.ItemType,
		&row.ItemID,
		&row.MessageID,
		&row.Text,
		&row.Mode,
		&row.SentAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return PublishMapRecord{}, false, nil
		}
		return PublishMapRecord{}, false, fmt.Errorf("query publish map: %w", err)
	}
	return row, true, nil
}

// UpsertPublishMap records the published state of an item. A re-publish
// replaces the anchor message id along with the text; edits go through
// UpdatePublishMapText and leave the anchor alone.
func (p *Pool) UpsertPublishMap(ctx context.Context, rec PublishMapRecord) error {
	const q = `
INSERT INTO sport.publish_map (item_type, item_id, message_id, text, mode, sent_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (item_type, item_id) DO UPDATE SET
	message_id = EXCLUDED.message_id,
	text = EXCLUDED.text,
	mode = EXCLUDED.mode,
	sent_at = EXCLUDED.sent_at
`
	if _, err := p.Exec(ctx, q, rec.ItemType, rec.ItemID, rec.MessageID, rec.Text, rec.Mode, rec.SentAt.UTC()); err != nil {
		return fmt.Errorf("upsert publish map: %w", err)
	}
	return nil
}

// UpdatePublishMapText stores the text of an edited message. The anchor
// message id is deliberately untouched.
func (p *Pool) UpdatePublishMapText(ctx context.Context, itemType string, itemID int64, text, mode string) error {
	const q = `
UPDATE sport.publish_map
SET text = $3, mode = $4
WHERE item_type = $1 AND item_id = $2
`
	if _, err := p.Exec(ctx, q, itemType, itemID, text, mode); err != nil {
		return fmt.Errorf("update publish map text: %w", err)
	}
	return nil
}

// PublishEditRecord is one audit row for a post-publish modification.
type PublishEditRecord struct {
	EditID         int64      `json:"edit_id"`
	ItemType       string     `json:"item_type"`
	ItemID         int64      `json:"item_id"`
	Action         string     `json:"action"`
	MessageID      *int64     `json:"message_id,omitempty"`
	ReplyMessageID *int64     `json:"reply_message_id,omitempty"`
	OldText        *string    `json:"old_text,omitempty"`
	NewText        *string    `json:"new_text,omitempty"`
	Mode           *string    `json:"mode,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// InsertPublishEdit appends an audit row and returns its id.
func (p *Pool) InsertPublishEdit(ctx context.Context, rec PublishEditRecord) (int64, error) {
	const q = `
INSERT INTO sport.publish_edits (item_type, item_id, action, message_id, reply_message_id, old_text, new_text, mode, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING edit_id
`
	var editID int64
	err := p.QueryRow(ctx, q,
		rec.ItemType,
		rec.ItemID,
		rec.Action,
		rec.MessageID,
		rec.ReplyMessageID,
		rec.OldText,
		rec.NewText,
		rec.Mode,
		rec.Error,
	).Scan(&editID)
	if err != nil {
		return 0, fmt.Errorf("insert publish edit: %w", err)
	}
	return editID, nil
}

// LastAppendText returns the text of the most recent successful append for
// an item.
func (p *Pool) LastAppendText(ctx context.Context, itemType string, itemID int64) (string, bool, error) {
	const q = `
SELECT new_text
FROM sport.publish_edits
WHERE item_type = $1 AND item_id = $2 AND action = 'append' AND error IS NULL AND new_text IS NOT NULL
ORDER BY created_at DESC, edit_id DESC
LIMIT 1
`
	var text string
	err := p.QueryRow(ctx, q, itemType, itemID).Scan(&text)
	if err != nil {
		if IsNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query last append text: %w", err)
	}
	return text, true, nil
}

// ListPublishEdits returns the audit trail for one item, newest first.
func (p *Pool) ListPublishEdits(ctx context.Context, itemType string, itemID int64, limit int) ([]PublishEditRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT edit_id, item_type, item_id, action, message_id, reply_message_id, old_text, new_text, mode, error, created_at
FROM sport.publish_edits
WHERE item_type = $1 AND item_id = $2
ORDER BY created_at DESC, edit_id DESC
LIMIT $3
`
	rows, err := p.Query(ctx, q, itemType, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("query publish edits: %w", err)
	}
	defer rows.Close()

	items := make([]PublishEditRecord, 0, limit)
	for rows.Next() {
		var row PublishEditRecord
		if err := rows.Scan(
			&row.EditID,
			&row.ItemType,
			&row.ItemID,
			&row.Action,
			&row.MessageID,
			&row.ReplyMessageID,
			&row.OldText,
			&row.NewText,
			&row.Mode,
			&row.Error,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan publish edit row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publish edit rows: %w", err)
	}

	return items, nil
}
