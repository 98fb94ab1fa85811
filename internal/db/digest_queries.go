package db

import (
	"context"
	"fmt"
	"time"
)

// DigestCandidate is a story with the window-scoped facts the digest scorer
// needs.
type DigestCandidate struct {
	StoryID         int64
	Title           string
	UpdatedAt       time.Time
	ArticleCount    int
	LatestPublished *time.Time
	HasTournament   bool
	TeamCount       int
	HasPlayer       bool
}

// ListDigestCandidates returns stories with at least one member article
// published inside [since, until), ordered by in-window article count.
func (p *Pool) ListDigestCandidates(ctx context.Context, since, until time.Time, limit int) ([]DigestCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	s.story_id,
	s.title,
	s.updated_at,
	COUNT(DISTINCT sa.news_id)::INT AS article_count,
	MAX(n.published_at) AS latest_published,
	COALESCE(BOOL_OR(t.type = 'tournament'), FALSE) AS has_tournament,
	COUNT(DISTINCT t.tag_id) FILTER (WHERE t.type = 'team')::INT AS team_count,
	COALESCE(BOOL_OR(t.type = 'player'), FALSE) AS has_player
FROM sport.stories s
JOIN sport.story_articles sa ON sa.story_id = s.story_id
JOIN sport.news n ON n.news_id = sa.news_id
LEFT JOIN sport.news_article_tags nat ON nat.news_id = sa.news_id
LEFT JOIN sport.tags t ON t.tag_id = nat.tag_id
WHERE n.published_at >= $1 AND n.published_at < $2
GROUP BY s.story_id, s.title, s.updated_at
ORDER BY article_count DESC, s.updated_at DESC, s.story_id DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, since.UTC(), until.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query digest candidates: %w", err)
	}
	defer rows.Close()

	items := make([]DigestCandidate, 0, limit)
	for rows.Next() {
		var row DigestCandidate
		if err := rows.Scan(
			&row.StoryID,
			&row.Title,
			&row.UpdatedAt,
			&row.ArticleCount,
			&row.LatestPublished,
			&row.HasTournament,
			&row.TeamCount,
			&row.HasPlayer,
		); err != nil {
			return nil, fmt.Errorf("scan digest candidate row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest candidate rows: %w", err)
	}

	return items, nil
}

// ListDigestStoryArticles returns a story's member articles published inside
// [since, until), newest first, with fingerprints for duplicate filtering.
func (p *Pool) ListDigestStoryArticles(ctx context.Context, storyID int64, since, until time.Time, limit int) ([]StoryArticleItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT n.news_id, n.title, n.url, n.published_at, cf.title_sig, cf.entity_sig
FROM sport.story_articles sa
JOIN sport.news n ON n.news_id = sa.news_id
LEFT JOIN sport.content_fingerprints cf ON cf.news_id = sa.news_id
WHERE sa.story_id = $1
  AND n.published_at >= $2 AND n.published_at < $3
ORDER BY n.published_at DESC, n.news_id DESC
LIMIT $4
`
	rows, err := p.Query(ctx, q, storyID, since.UTC(), until.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query digest story articles: %w", err)
	}
	defer rows.Close()

	items := make([]StoryArticleItem, 0, limit)
	for rows.Next() {
		var row StoryArticleItem
		if err := rows.Scan(&row.NewsID, &row.Title, &row.URL, &row.PublishedAt, &row.TitleSig, &row.EntitySig); err != nil {
			return nil, fmt.Errorf("scan digest story article row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest story article rows: %w", err)
	}

	return items, nil
}

// UpsertDigest stores a digest header keyed by its window and returns the
// digest id. Rebuilding the same window replaces the previous run.
func (p *Pool) UpsertDigest(ctx context.Context, period string, since, until time.Time, title string) (int64, error) {
	const q = `
INSERT INTO sport.digests (period, since_utc, until_utc, title, status)
VALUES ($1, $2, $3, $4, 'ready')
ON CONFLICT (period, since_utc, until_utc) DO UPDATE SET
	title = EXCLUDED.title,
	status = 'ready',
	message_id = NULL
RETURNING digest_id
`
	var digestID int64
	if err := p.QueryRow(ctx, q, period, since.UTC(), until.UTC(), title).Scan(&digestID); err != nil {
		return 0, fmt.Errorf("upsert digest: %w", err)
	}
	return digestID, nil
}

// DigestItemInput is one ranked story for persistence.
type DigestItemInput struct {
	Rank          int
	StoryID       int64
	TotalArticles int
}

// ReplaceDigestItems rewrites the ranked item list of a digest.
func (p *Pool) ReplaceDigestItems(ctx context.Context, digestID int64, items []DigestItemInput) error {
	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin digest items tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sport.digest_items WHERE digest_id = $1`, digestID); err != nil {
		return fmt.Errorf("delete digest items: %w", err)
	}

	const ins = `
INSERT INTO sport.digest_items (digest_id, rank, story_id, total_articles)
VALUES ($1, $2, $3, $4)
`
	for _, item := range items {
		if _, err := tx.Exec(ctx, ins, digestID, item.Rank, item.StoryID, item.TotalArticles); err != nil {
			return fmt.Errorf("insert digest item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit digest items tx: %w", err)
	}
	return nil
}

// UpdateDigestStatus records the delivery outcome of a digest.
func (p *Pool) UpdateDigestStatus(ctx context.Context, digestID int64, status string, messageID *string) error {
	const q = `
UPDATE sport.digests
SET status = $2, message_id = COALESCE($3, message_id)
WHERE digest_id = $1
`
	if _, err := p.Exec(ctx, q, digestID, status, messageID); err != nil {
		return fmt.Errorf("update digest status: %w", err)
	}
	return nil
}
