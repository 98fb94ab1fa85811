package db

import (
	"context"
	"fmt"
	"time"
)

// StatsTotals stores lifetime row counts.
type StatsTotals struct {
	Articles int64 `json:"articles"`
	Tags     int64 `json:"tags"`
	Stories  int64 `json:"stories"`
	Digests  int64 `json:"digests"`
}

// PipelineThroughput stores daily throughput and queue counters.
type PipelineThroughput struct {
	ArticlesIngestedToday int64 `json:"articles_ingested_today"`
	StoriesCreatedToday   int64 `json:"stories_created_today"`
	SentToday             int64 `json:"sent_today"`
	QueueDepth            int64 `json:"queue_depth"`
	PendingNoFingerprint  int64 `json:"pending_no_fingerprint"`
}

// PipelineStats is the read model returned by the stats command and the
// admin API.
type PipelineStats struct {
	Day        string             `json:"day"`
	Totals     StatsTotals        `json:"totals"`
	Throughput PipelineThroughput `json:"throughput"`
}

// QueryPipelineStats returns total counts plus throughput for one UTC day.
func (p *Pool) QueryPipelineStats(ctx context.Context, dayStart, dayEnd time.Time) (*PipelineStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &PipelineStats{
		Day: startUTC.Format("2006-01-02"),
	}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM sport.news) AS articles,
	(SELECT COUNT(*) FROM sport.tags) AS tags,
	(SELECT COUNT(*) FROM sport.stories) AS stories,
	(SELECT COUNT(*) FROM sport.digests) AS digests
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.Articles,
		&stats.Totals.Tags,
		&stats.Totals.Stories,
		&stats.Totals.Digests,
	); err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM sport.news n WHERE n.created_at >= $1 AND n.created_at < $2) AS articles_ingested_today,
	(SELECT COUNT(*) FROM sport.stories s WHERE s.created_at >= $1 AND s.created_at < $2) AS stories_created_today,
	(SELECT COUNT(*) FROM sport.publish_queue q WHERE q.status = 'sent' AND q.sent_at >= $1 AND q.sent_at < $2) AS sent_today,
	(SELECT COUNT(*) FROM sport.publish_queue q WHERE q.status = 'queued') AS queue_depth,
	(SELECT COUNT(*) FROM sport.news n WHERE NOT EXISTS (SELECT 1 FROM sport.content_fingerprints cf WHERE cf.news_id = n.news_id)) AS pending_no_fingerprint
`
	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.ArticlesIngestedToday,
		&stats.Throughput.StoriesCreatedToday,
		&stats.Throughput.SentToday,
		&stats.Throughput.QueueDepth,
		&stats.Throughput.PendingNoFingerprint,
	); err != nil {
		return nil, fmt.Errorf("query stats throughput: %w", err)
	}

	return stats, nil
}
