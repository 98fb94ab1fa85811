package db

import (
	"context"
	"fmt"
	"time"
)

// TagRecord is the persisted view of one tag.
type TagRecord struct {
	TagID int64   `json:"tag_id"`
	Name  string  `json:"name"`
	URL   *string `json:"url,omitempty"`
	Type  string  `json:"type"`
}

// FindTagByURL resolves a tag by its normalized URL.
func (p *Pool) FindTagByURL(ctx context.Context, url string) (TagRecord, bool, error) {
	const q = `
SELECT tag_id, name, url, type
FROM sport.tags
WHERE url = $1
`
	var row TagRecord
	err := p.QueryRow(ctx, q, url).Scan(&row.TagID, &row.Name, &row.URL, &row.Type)
	if err != nil {
		if IsNoRows(err) {
			return TagRecord{}, false, nil
		}
		return TagRecord{}, false, fmt.Errorf("query tag by url: %w", err)
	}
	return row, true, nil
}

// FindTagByName resolves a tag by case-insensitive name. The lowest id wins
// when duplicates exist.
func (p *Pool) FindTagByName(ctx context.Context, name string) (TagRecord, bool, error) {
	const q = `
SELECT tag_id, name, url, type
FROM sport.tags
WHERE lower(name) = lower($1)
ORDER BY tag_id ASC
LIMIT 1
`
	var row TagRecord
	err := p.QueryRow(ctx, q, name).Scan(&row.TagID, &row.Name, &row.URL, &row.Type)
	if err != nil {
		if IsNoRows(err) {
			return TagRecord{}, false, nil
		}
		return TagRecord{}, false, fmt.Errorf("query tag by name: %w", err)
	}
	return row, true, nil
}

// InsertTag creates a tag row and returns its id.
func (p *Pool) InsertTag(ctx context.Context, name string, url *string, tagType string) (int64, error) {
	const q = `
INSERT INTO sport.tags (name, url, type)
VALUES ($1, $2, $3)
RETURNING tag_id
`
	var tagID int64
	if err := p.QueryRow(ctx, q, name, url, tagType).Scan(&tagID); err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	return tagID, nil
}

// UpdateTagType rewrites a tag's type.
func (p *Pool) UpdateTagType(ctx context.Context, tagID int64, tagType string) error {
	const q = `
UPDATE sport.tags
SET type = $2, updated_at = now()
WHERE tag_id = $1
`
	if _, err := p.Exec(ctx, q, tagID, tagType); err != nil {
		return fmt.Errorf("update tag type: %w", err)
	}
	return nil
}

// FillTagURL backfills a missing tag URL.
func (p *Pool) FillTagURL(ctx context.Context, tagID int64, url string) error {
	const q = `
UPDATE sport.tags
SET url = $2, updated_at = now()
WHERE tag_id = $1 AND url IS NULL
`
	if _, err := p.Exec(ctx, q, tagID, url); err != nil {
		return fmt.Errorf("fill tag url: %w", err)
	}
	return nil
}

// LinkArticleTag attaches a tag to an article. Returns false when the link
// already existed.
func (p *Pool) LinkArticleTag(ctx context.Context, newsID, tagID int64) (bool, error) {
	const q = `
INSERT INTO sport.news_article_tags (news_id, tag_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	tag, err := p.Exec(ctx, q, newsID, tagID)
	if err != nil {
		return false, fmt.Errorf("link article tag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListArticleTags returns the tags attached to one article, ordered by id.
func (p *Pool) ListArticleTags(ctx context.Context, newsID int64) ([]TagRecord, error) {
	const q = `
SELECT t.tag_id, t.name, t.url, t.type
FROM sport.news_article_tags nat
JOIN sport.tags t ON t.tag_id = nat.tag_id
WHERE nat.news_id = $1
ORDER BY t.tag_id ASC
`
	rows, err := p.Query(ctx, q, newsID)
	if err != nil {
		return nil, fmt.Errorf("query article tags: %w", err)
	}
	defer rows.Close()

	items := make([]TagRecord, 0, 8)
	for rows.Next() {
		var row TagRecord
		if err := rows.Scan(&row.TagID, &row.Name, &row.URL, &row.Type); err != nil {
			return nil, fmt.Errorf("scan article tag row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article tag rows: %w", err)
	}

	return items, nil
}

// ArticleTagLink pairs an article with one attached tag id.
type ArticleTagLink struct {
	NewsID int64
	TagID  int64
}

// ListWindowTagLinks returns every article-tag link for articles published at
// or after since.
func (p *Pool) ListWindowTagLinks(ctx context.Context, since time.Time) ([]ArticleTagLink, error) {
	const q = `
SELECT nat.news_id, nat.tag_id
FROM sport.news_article_tags nat
JOIN sport.news n ON n.news_id = nat.news_id
WHERE n.published_at >= $1
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query window tag links: %w", err)
	}
	defer rows.Close()

	items := make([]ArticleTagLink, 0, 64)
	for rows.Next() {
		var row ArticleTagLink
		if err := rows.Scan(&row.NewsID, &row.TagID); err != nil {
			return nil, fmt.Errorf("scan window tag link: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window tag links: %w", err)
	}

	return items, nil
}

// ResolveEntityAlias looks up the canonical entity behind a normalized alias
// of the given type. The oldest alias row wins.
func (p *Pool) ResolveEntityAlias(ctx context.Context, aliasNormalized, entityType string) (int64, bool, error) {
	const q = `
SELECT entity_id
FROM sport.entity_aliases
WHERE alias_normalized = $1 AND entity_type = $2 AND entity_id IS NOT NULL
ORDER BY alias_id ASC
LIMIT 1
`
	var entityID int64
	err := p.QueryRow(ctx, q, aliasNormalized, entityType).Scan(&entityID)
	if err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve entity alias: %w", err)
	}
	return entityID, true, nil
}

// EnsureEntity creates the canonical entity for (name, type) if missing and
// returns its id either way.
func (p *Pool) EnsureEntity(ctx context.Context, name, entityType string, lang *string) (int64, error) {
	const q = `
INSERT INTO sport.entities (name, type, lang)
VALUES ($1, $2, $3)
ON CONFLICT (name, type) DO UPDATE SET name = EXCLUDED.name
RETURNING entity_id
`
	var entityID int64
	if err := p.QueryRow(ctx, q, name, entityType, lang).Scan(&entityID); err != nil {
		return 0, fmt.Errorf("ensure entity: %w", err)
	}
	return entityID, nil
}

// UpsertEntityAlias records an alias for an entity. An existing alias row
// keeps its entity link unless that link is still unset.
func (p *Pool) UpsertEntityAlias(ctx context.Context, alias, aliasNormalized, entityType string, entityID int64, source, lang *string) error {
	const q = `
INSERT INTO sport.entity_aliases (alias, alias_normalized, entity_type, entity_id, source, lang)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (alias_normalized, entity_type) DO UPDATE SET
	entity_id = COALESCE(sport.entity_aliases.entity_id, EXCLUDED.entity_id)
`
	if _, err := p.Exec(ctx, q, alias, aliasNormalized, entityType, entityID, source, lang); err != nil {
		return fmt.Errorf("upsert entity alias: %w", err)
	}
	return nil
}

// AssignmentRecord is the per-article entity slot row.
type AssignmentRecord struct {
	NewsID       int64
	SportID      *int64
	TournamentID *int64
	TeamID       *int64
	PlayerID     *int64
}

// GetAssignment loads the entity slots of one article.
func (p *Pool) GetAssignment(ctx context.Context, newsID int64) (AssignmentRecord, bool, error) {
	const q = `
SELECT news_id, sport_id, tournament_id, team_id, player_id
FROM sport.news_entity_assignments
WHERE news_id = $1
`
	var row AssignmentRecord
	err := p.QueryRow(ctx, q, newsID).Scan(&row.NewsID, &row.SportID, &row.TournamentID, &row.TeamID, &row.PlayerID)
	if err != nil {
		if IsNoRows(err) {
			return AssignmentRecord{}, false, nil
		}
		return AssignmentRecord{}, false, fmt.Errorf("query assignment: %w", err)
	}
	return row, true, nil
}

// UpsertAssignment writes the entity slots of one article.
func (p *Pool) UpsertAssignment(ctx context.Context, rec AssignmentRecord) error {
	const q = `
INSERT INTO sport.news_entity_assignments (news_id, sport_id, tournament_id, team_id, player_id, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (news_id) DO UPDATE SET
	sport_id = EXCLUDED.sport_id,
	tournament_id = EXCLUDED.tournament_id,
	team_id = EXCLUDED.team_id,
	player_id = EXCLUDED.player_id,
	updated_at = now()
`
	if _, err := p.Exec(ctx, q, rec.NewsID, rec.SportID, rec.TournamentID, rec.TeamID, rec.PlayerID); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// ListWindowAssignments returns entity slot rows for articles published at or
// after since.
func (p *Pool) ListWindowAssignments(ctx context.Context, since time.Time) ([]AssignmentRecord, error) {
	const q = `
SELECT a.news_id, a.sport_id, a.tournament_id, a.team_id, a.player_id
FROM sport.news_entity_assignments a
JOIN sport.news n ON n.news_id = a.news_id
WHERE n.published_at >= $1
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query window assignments: %w", err)
	}
	defer rows.Close()

	items := make([]AssignmentRecord, 0, 64)
	for rows.Next() {
		var row AssignmentRecord
		if err := rows.Scan(&row.NewsID, &row.SportID, &row.TournamentID, &row.TeamID, &row.PlayerID); err != nil {
			return nil, fmt.Errorf("scan window assignment: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window assignments: %w", err)
	}

	return items, nil
}
