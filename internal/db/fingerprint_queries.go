package db

import (
	"context"
	"fmt"
)

// FingerprintRecord is the stored fingerprint of one article.
type FingerprintRecord struct {
	NewsID    int64
	TitleSig  string
	EntitySig *string
}

// UpsertFingerprint stores or refreshes an article's fingerprint.
func (p *Pool) UpsertFingerprint(ctx context.Context, rec FingerprintRecord) error {
	const q = `
INSERT INTO sport.content_fingerprints (news_id, title_sig, entity_sig, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (news_id) DO UPDATE SET
	title_sig = EXCLUDED.title_sig,
	entity_sig = EXCLUDED.entity_sig,
	updated_at = now()
`
	if _, err := p.Exec(ctx, q, rec.NewsID, rec.TitleSig, rec.EntitySig); err != nil {
		return fmt.Errorf("upsert fingerprint: %w", err)
	}
	return nil
}

// GetFingerprint loads one article's fingerprint.
func (p *Pool) GetFingerprint(ctx context.Context, newsID int64) (FingerprintRecord, bool, error) {
	const q = `
SELECT news_id, title_sig, entity_sig
FROM sport.content_fingerprints
WHERE news_id = $1
`
	var row FingerprintRecord
	err := p.QueryRow(ctx, q, newsID).Scan(&row.NewsID, &row.TitleSig, &row.EntitySig)
	if err != nil {
		if IsNoRows(err) {
			return FingerprintRecord{}, false, nil
		}
		return FingerprintRecord{}, false, fmt.Errorf("query fingerprint: %w", err)
	}
	return row, true, nil
}
