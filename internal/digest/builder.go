package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/antidup"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/normalize"
)

// Periods supported by the digest builder.
const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"
)

const (
	// candidateOverfetch widens the candidate query so scoring can reorder.
	candidateOverfetch = 2
	// articlesPerItem caps articles shown per digest story.
	articlesPerItem = 3
	// articleOverfetch gives the duplicate filter spares.
	articleOverfetch = 3
)

// Item is one ranked story inside a digest.
type Item struct {
	Rank          int
	StoryID       int64
	Title         string
	Score         float64
	TotalArticles int
	HasTournament bool
	TeamCount     int
	HasPlayer     bool
	Articles      []db.StoryArticleItem
}

// Result is a fully built digest ready for rendering and storage.
type Result struct {
	Period string
	Since  time.Time
	Until  time.Time
	Title  string
	Items  []Item
}

// Builder assembles digests from persisted stories.
type Builder struct {
	pool *db.Pool
	loc  *time.Location
	log  zerolog.Logger
}

// NewBuilder wires a digest builder. loc is the audience timezone the
// windows are aligned to.
func NewBuilder(pool *db.Pool, loc *time.Location, log zerolog.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{pool: pool, loc: loc, log: log.With().Str("component", "digest").Logger()}
}

// Window returns the default window for a period: the previous full local
// day, or the previous full Monday-to-Monday week.
func Window(period string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch period {
	case PeriodDaily:
		return midnight.AddDate(0, 0, -1).UTC(), midnight.UTC(), nil
	case PeriodWeekly:
		weekday := int(midnight.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		thisMonday := midnight.AddDate(0, 0, -(weekday - 1))
		return thisMonday.AddDate(0, 0, -7).UTC(), thisMonday.UTC(), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown digest period %q", period)
	}
}

// Score ranks a candidate story: bigger and fresher stories with stronger
// entity context come first.
func Score(c db.DigestCandidate, now time.Time) float64 {
	score := float64(c.ArticleCount) / 3
	if score > 10 {
		score = 10
	}

	if c.LatestPublished != nil {
		age := now.Sub(*c.LatestPublished)
		switch {
		case age <= 6*time.Hour:
			score += 3
		case age <= 24*time.Hour:
			score += 2
		case age <= 72*time.Hour:
			score += 1
		}
	}

	if c.HasTournament || c.TeamCount >= 2 {
		score += 2
	}
	if c.HasPlayer {
		score += 1
	}
	return score
}

// Build assembles the digest for a period. Zero since/until use the default
// window.
func (b *Builder) Build(ctx context.Context, period string, since, until time.Time, limit int) (Result, error) {
	now := globaltime.Now().UTC()
	if since.IsZero() || until.IsZero() {
		var err error
		since, until, err = Window(period, now, b.loc)
		if err != nil {
			return Result{}, err
		}
	}
	if !since.Before(until) {
		return Result{}, fmt.Errorf("digest window is empty")
	}
	if limit <= 0 {
		limit = 25
	}

	candidates, err := b.pool.ListDigestCandidates(ctx, since, until, limit*candidateOverfetch)
	if err != nil {
		return Result{}, err
	}

	type scored struct {
		candidate db.DigestCandidate
		score     float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{candidate: c, score: Score(c, now)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if !ranked[i].candidate.UpdatedAt.Equal(ranked[j].candidate.UpdatedAt) {
			return ranked[i].candidate.UpdatedAt.After(ranked[j].candidate.UpdatedAt)
		}
		return ranked[i].candidate.StoryID < ranked[j].candidate.StoryID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := Result{
		Period: period,
		Since:  since,
		Until:  until,
		Title:  windowTitle(period, since, until, b.loc),
	}

	for i, entry := range ranked {
		articles, err := b.pool.ListDigestStoryArticles(ctx, entry.candidate.StoryID, since, until, articlesPerItem*articleOverfetch)
		if err != nil {
			return result, err
		}

		result.Items = append(result.Items, Item{
			Rank:          i + 1,
			StoryID:       entry.candidate.StoryID,
			Title:         entry.candidate.Title,
			Score:         entry.score,
			TotalArticles: entry.candidate.ArticleCount,
			HasTournament: entry.candidate.HasTournament,
			TeamCount:     entry.candidate.TeamCount,
			HasPlayer:     entry.candidate.HasPlayer,
			Articles:      selectArticles(articles),
		})
	}

	b.log.Info().
		Str("period", period).
		Time("since", since).
		Time("until", until).
		Int("items", len(result.Items)).
		Msg("digest built")
	return result, nil
}

// selectArticles hides near-duplicate member articles and caps the rest.
func selectArticles(articles []db.StoryArticleItem) []db.StoryArticleItem {
	candidates := make([]antidup.Candidate, 0, len(articles))
	for _, a := range articles {
		if a.TitleSig == nil || *a.TitleSig == "" {
			continue
		}
		entitySig := ""
		if a.EntitySig != nil {
			entitySig = *a.EntitySig
		}
		candidates = append(candidates, antidup.Candidate{ID: a.NewsID, TitleSig: *a.TitleSig, EntitySig: entitySig})
	}
	_, dropped := antidup.Filter(candidates)
	droppedIDs := make(map[int64]struct{}, len(dropped))
	for _, c := range dropped {
		droppedIDs[c.ID] = struct{}{}
	}

	selected := make([]db.StoryArticleItem, 0, articlesPerItem)
	for _, a := range articles {
		if len(selected) == articlesPerItem {
			break
		}
		if _, isDup := droppedIDs[a.NewsID]; isDup {
			continue
		}
		selected = append(selected, a)
	}
	return selected
}

// Store persists the digest header and its ranked items, returning the
// digest id.
func (b *Builder) Store(ctx context.Context, result Result) (int64, error) {
	digestID, err := b.pool.UpsertDigest(ctx, result.Period, result.Since, result.Until, result.Title)
	if err != nil {
		return 0, err
	}

	items := make([]db.DigestItemInput, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, db.DigestItemInput{
			Rank:          item.Rank,
			StoryID:       item.StoryID,
			TotalArticles: item.TotalArticles,
		})
	}
	if err := b.pool.ReplaceDigestItems(ctx, digestID, items); err != nil {
		return 0, err
	}
	return digestID, nil
}

func windowTitle(period string, since, until time.Time, loc *time.Location) string {
	start := since.In(loc)
	end := until.In(loc).Add(-time.Second)

	if period == PeriodWeekly {
		return fmt.Sprintf("Недельный дайджест %d %s — %d %s %d",
			start.Day(), normalize.RuMonthName(start.Month()),
			end.Day(), normalize.RuMonthName(end.Month()), end.Year())
	}
	return fmt.Sprintf("Дайджест за %d %s %d",
		start.Day(), normalize.RuMonthName(start.Month()), start.Year())
}
