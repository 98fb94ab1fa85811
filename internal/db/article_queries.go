package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ArticleDraft carries one crawled article ready for persistence.
type ArticleDraft struct {
	URL         string
	Title       string
	Body        string
	PublishedAt *time.Time
	Source      string
	Lang        string
	Images      json.RawMessage
	Videos      json.RawMessage
}

// UpsertArticle inserts an article keyed by canonical URL or refreshes the
// mutable columns of the existing row. Returns the row id and whether the
// row was newly inserted.
func (p *Pool) UpsertArticle(ctx context.Context, draft ArticleDraft) (int64, bool, error) {
	if draft.URL == "" {
		return 0, false, fmt.Errorf("article url is empty")
	}
	if draft.Source == "" {
		draft.Source = "Championat.com"
	}
	if draft.Lang == "" {
		draft.Lang = "ru"
	}

	const q = `
INSERT INTO sport.news (url, title, body, published_at, source, lang, images, videos)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	body = CASE WHEN EXCLUDED.body <> '' THEN EXCLUDED.body ELSE sport.news.body END,
	published_at = COALESCE(EXCLUDED.published_at, sport.news.published_at),
	images = COALESCE(EXCLUDED.images, sport.news.images),
	videos = COALESCE(EXCLUDED.videos, sport.news.videos),
	updated_at = now()
RETURNING news_id, (xmax = 0)
`

	var (
		newsID   int64
		inserted bool
	)
	err := p.QueryRow(ctx, q,
		draft.URL,
		draft.Title,
		draft.Body,
		draft.PublishedAt,
		draft.Source,
		draft.Lang,
		draft.Images,
		draft.Videos,
	).Scan(&newsID, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert article: %w", err)
	}
	return newsID, inserted, nil
}

// AnchorURL returns the URL of the most recently published article, falling
// back to the highest row id when nothing has a publication timestamp.
func (p *Pool) AnchorURL(ctx context.Context) (string, error) {
	const q = `
SELECT url
FROM sport.news
ORDER BY published_at DESC NULLS LAST, news_id DESC
LIMIT 1
`
	var url string
	if err := p.QueryRow(ctx, q).Scan(&url); err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("query anchor url: %w", err)
	}
	return url, nil
}

// ArticleListOptions controls article listing queries.
type ArticleListOptions struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ArticleListItem is used by the articles CLI command and the admin API.
type ArticleListItem struct {
	NewsID      int64      `json:"news_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Lang        string     `json:"lang"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListArticles lists ingested articles in a UTC created_at window.
func (p *Pool) ListArticles(ctx context.Context, opts ArticleListOptions) ([]ArticleListItem, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	from := opts.From.UTC()
	to := opts.To.UTC()
	if !from.Before(to) {
		return nil, fmt.Errorf("from must be before to")
	}

	const q = `
SELECT
	n.news_id,
	n.title,
	n.url,
	n.source,
	n.lang,
	n.published_at,
	n.created_at
FROM sport.news n
WHERE n.created_at >= $1
  AND n.created_at < $2
ORDER BY n.created_at DESC, n.news_id DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, from, to, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	items := make([]ArticleListItem, 0, opts.Limit)
	for rows.Next() {
		var row ArticleListItem
		if err := rows.Scan(
			&row.NewsID,
			&row.Title,
			&row.URL,
			&row.Source,
			&row.Lang,
			&row.PublishedAt,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}

// ClusterWindowArticle is one clustering candidate with its predicate inputs.
type ClusterWindowArticle struct {
	NewsID      int64
	Title       string
	PublishedAt *time.Time
}

// ListClusterWindow returns the newest articles published at or after since,
// capped at limit.
func (p *Pool) ListClusterWindow(ctx context.Context, since time.Time, limit int) ([]ClusterWindowArticle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT n.news_id, n.title, n.published_at
FROM sport.news n
WHERE n.published_at >= $1
ORDER BY n.published_at DESC, n.news_id DESC
LIMIT $2
`

	rows, err := p.Query(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query cluster window: %w", err)
	}
	defer rows.Close()

	items := make([]ClusterWindowArticle, 0, limit)
	for rows.Next() {
		var row ClusterWindowArticle
		if err := rows.Scan(&row.NewsID, &row.Title, &row.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan cluster window row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster window rows: %w", err)
	}

	return items, nil
}

// GetArticle loads one article by id.
func (p *Pool) GetArticle(ctx context.Context, newsID int64) (ArticleListItem, error) {
	const q = `
SELECT n.news_id, n.title, n.url, n.source, n.lang, n.published_at, n.created_at
FROM sport.news n
WHERE n.news_id = $1
`
	var row ArticleListItem
	err := p.QueryRow(ctx, q, newsID).Scan(
		&row.NewsID,
		&row.Title,
		&row.URL,
		&row.Source,
		&row.Lang,
		&row.PublishedAt,
		&row.CreatedAt,
	)
	if err != nil {
		return ArticleListItem{}, err
	}
	return row, nil
}
