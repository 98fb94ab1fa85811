package db

import (
	"context"
	"fmt"
	"time"
)

// StoryRecord is the persisted view of one story.
type StoryRecord struct {
	StoryID   int64     `json:"story_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateStory inserts a story and returns its id.
func (p *Pool) CreateStory(ctx context.Context, title string) (int64, error) {
	const q = `
INSERT INTO sport.stories (title)
VALUES ($1)
RETURNING story_id
`
	var storyID int64
	if err := p.QueryRow(ctx, q, title).Scan(&storyID); err != nil {
		return 0, fmt.Errorf("insert story: %w", err)
	}
	return storyID, nil
}

// LinkStoryArticle attaches an article to a story. Returns false when the
// link already existed.
func (p *Pool) LinkStoryArticle(ctx context.Context, storyID, newsID int64) (bool, error) {
	const q = `
INSERT INTO sport.story_articles (story_id, news_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	tag, err := p.Exec(ctx, q, storyID, newsID)
	if err != nil {
		return false, fmt.Errorf("link story article: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchStory bumps a story's updated_at.
func (p *Pool) TouchStory(ctx context.Context, storyID int64) error {
	const q = `
UPDATE sport.stories
SET updated_at = now()
WHERE story_id = $1
`
	if _, err := p.Exec(ctx, q, storyID); err != nil {
		return fmt.Errorf("touch story: %w", err)
	}
	return nil
}

// StoryForArticle returns the story an article already belongs to. The
// lowest story id wins if the article was ever linked twice.
func (p *Pool) StoryForArticle(ctx context.Context, newsID int64) (int64, bool, error) {
	const q = `
SELECT story_id
FROM sport.story_articles
WHERE news_id = $1
ORDER BY story_id ASC
LIMIT 1
`
	var storyID int64
	err := p.QueryRow(ctx, q, newsID).Scan(&storyID)
	if err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query story for article: %w", err)
	}
	return storyID, true, nil
}

// GetStory loads one story by id.
func (p *Pool) GetStory(ctx context.Context, storyID int64) (StoryRecord, error) {
	const q = `
SELECT story_id, title, created_at, updated_at
FROM sport.stories
WHERE story_id = $1
`
	var row StoryRecord
	err := p.QueryRow(ctx, q, storyID).Scan(&row.StoryID, &row.Title, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return StoryRecord{}, err
	}
	return row, nil
}

// ListRecentStories returns stories updated at or after since, newest first.
func (p *Pool) ListRecentStories(ctx context.Context, since time.Time, limit int) ([]StoryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT story_id, title, created_at, updated_at
FROM sport.stories
WHERE updated_at >= $1
ORDER BY updated_at DESC, story_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent stories: %w", err)
	}
	defer rows.Close()

	items := make([]StoryRecord, 0, limit)
	for rows.Next() {
		var row StoryRecord
		if err := rows.Scan(&row.StoryID, &row.Title, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan recent story row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent story rows: %w", err)
	}

	return items, nil
}

// StoryArticleItem is one member article of a story with the fields the
// renderers need.
type StoryArticleItem struct {
	NewsID      int64      `json:"news_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	TitleSig    *string    `json:"-"`
	EntitySig   *string    `json:"-"`
}

// ListStoryArticles returns a story's member articles, newest first.
func (p *Pool) ListStoryArticles(ctx context.Context, storyID int64, limit int) ([]StoryArticleItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT n.news_id, n.title, n.url, n.published_at, cf.title_sig, cf.entity_sig
FROM sport.story_articles sa
JOIN sport.news n ON n.news_id = sa.news_id
LEFT JOIN sport.content_fingerprints cf ON cf.news_id = sa.news_id
WHERE sa.story_id = $1
ORDER BY n.published_at DESC NULLS LAST, n.news_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, storyID, limit)
	if err != nil {
		return nil, fmt.Errorf("query story articles: %w", err)
	}
	defer rows.Close()

	items := make([]StoryArticleItem, 0, limit)
	for rows.Next() {
		var row StoryArticleItem
		if err := rows.Scan(&row.NewsID, &row.Title, &row.URL, &row.PublishedAt, &row.TitleSig, &row.EntitySig); err != nil {
			return nil, fmt.Errorf("scan story article row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story article rows: %w", err)
	}

	return items, nil
}

// CountStoryArticles returns the member count of a story.
func (p *Pool) CountStoryArticles(ctx context.Context, storyID int64) (int, error) {
	const q = `
SELECT COUNT(*)
FROM sport.story_articles
WHERE story_id = $1
`
	var count int
	if err := p.QueryRow(ctx, q, storyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count story articles: %w", err)
	}
	return count, nil
}

// StoryFingerprint pairs a story with the fingerprint of one of its members.
type StoryFingerprint struct {
	StoryID   int64
	NewsID    int64
	TitleSig  string
	EntitySig *string
}

// ListRecentStoryFingerprints returns the fingerprints of all articles in
// stories updated at or after since. Used to attach new clusters to an
// existing near-duplicate story.
func (p *Pool) ListRecentStoryFingerprints(ctx context.Context, since time.Time) ([]StoryFingerprint, error) {
	const q = `
SELECT sa.story_id, cf.news_id, cf.title_sig, cf.entity_sig
FROM sport.story_articles sa
JOIN sport.stories s ON s.story_id = sa.story_id
JOIN sport.content_fingerprints cf ON cf.news_id = sa.news_id
WHERE s.updated_at >= $1
ORDER BY sa.story_id ASC, cf.news_id ASC
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent story fingerprints: %w", err)
	}
	defer rows.Close()

	items := make([]StoryFingerprint, 0, 64)
	for rows.Next() {
		var row StoryFingerprint
		if err := rows.Scan(&row.StoryID, &row.NewsID, &row.TitleSig, &row.EntitySig); err != nil {
			return nil, fmt.Errorf("scan story fingerprint row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story fingerprint rows: %w", err)
	}

	return items, nil
}
