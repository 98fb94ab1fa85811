package cluster

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/antidup"
	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/globaltime"
	"horse.fit/sportwire/internal/tags"
	"horse.fit/sportwire/internal/titler"
)

const (
	// DefaultWindow is how far back a clustering run looks for articles.
	DefaultWindow = 48 * time.Hour
	// DefaultCap bounds the articles loaded per run.
	DefaultCap = 500

	// storyAttachWindow is how far back existing stories are considered
	// when attaching a new cluster by near-duplicate fingerprints.
	storyAttachWindow = 72 * time.Hour
)

// Store is the persistence surface clustering needs. *db.Pool implements
// it.
type Store interface {
	ListClusterWindow(ctx context.Context, since time.Time, limit int) ([]db.ClusterWindowArticle, error)
	ListWindowTagLinks(ctx context.Context, since time.Time) ([]db.ArticleTagLink, error)
	ListWindowAssignments(ctx context.Context, since time.Time) ([]db.AssignmentRecord, error)
	ListRecentStoryFingerprints(ctx context.Context, since time.Time) ([]db.StoryFingerprint, error)
	GetFingerprint(ctx context.Context, newsID int64) (db.FingerprintRecord, bool, error)
	StoryForArticle(ctx context.Context, newsID int64) (int64, bool, error)
	CreateStory(ctx context.Context, title string) (int64, error)
	LinkStoryArticle(ctx context.Context, storyID, newsID int64) (bool, error)
	TouchStory(ctx context.Context, storyID int64) error
	GetArticle(ctx context.Context, newsID int64) (db.ArticleListItem, error)
	ListArticleTags(ctx context.Context, newsID int64) ([]db.TagRecord, error)
}

// Service runs clustering over persisted articles and materializes stories.
type Service struct {
	pool   Store
	log    zerolog.Logger
	dryRun bool
}

// NewService wires a clustering service.
func NewService(pool Store, log zerolog.Logger) *Service {
	return &Service{pool: pool, log: log.With().Str("component", "cluster").Logger()}
}

// SetDryRun makes Run report what it would build without writing stories
// or links.
func (s *Service) SetDryRun(dryRun bool) {
	s.dryRun = dryRun
}

// RunSummary reports what one clustering run did.
type RunSummary struct {
	Processed      int `json:"processed"`
	PairsEvaluated int `json:"pairs_evaluated"`
	Clusters       int `json:"clusters"`
	NewStories     int `json:"new_stories"`
	LinksCreated   int `json:"links_created"`
	LinksSkipped   int `json:"links_skipped"`
}

// Run clusters the articles of the window and links each cluster to a
// story: the story its members already belong to, a recent near-duplicate
// story, or a freshly created one.
func (s *Service) Run(ctx context.Context, window time.Duration, limit int) (RunSummary, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultCap
	}

	now := globaltime.Now().UTC()
	since := now.Add(-window)

	articles, err := s.pool.ListClusterWindow(ctx, since, limit)
	if err != nil {
		return RunSummary{}, err
	}

	tagLinks, err := s.pool.ListWindowTagLinks(ctx, since)
	if err != nil {
		return RunSummary{}, err
	}
	tagsByArticle := make(map[int64][]int64, len(articles))
	for _, link := range tagLinks {
		tagsByArticle[link.NewsID] = append(tagsByArticle[link.NewsID], link.TagID)
	}

	assignments, err := s.pool.ListWindowAssignments(ctx, since)
	if err != nil {
		return RunSummary{}, err
	}
	assignmentByArticle := make(map[int64]db.AssignmentRecord, len(assignments))
	for _, a := range assignments {
		assignmentByArticle[a.NewsID] = a
	}

	items := make([]Item, 0, len(articles))
	for _, article := range articles {
		var sportIDs, tournamentIDs []int64
		if a, ok := assignmentByArticle[article.NewsID]; ok {
			if a.SportID != nil {
				sportIDs = append(sportIDs, *a.SportID)
			}
			if a.TournamentID != nil {
				tournamentIDs = append(tournamentIDs, *a.TournamentID)
			}
		}
		items = append(items, NewItem(
			article.NewsID,
			article.Title,
			article.PublishedAt,
			tagsByArticle[article.NewsID],
			sportIDs,
			tournamentIDs,
		))
	}

	built := Build(items)
	summary := RunSummary{
		Processed:      len(items),
		PairsEvaluated: built.PairsEvaluated,
		Clusters:       len(built.Clusters),
	}

	if s.dryRun {
		s.log.Info().
			Int("processed", summary.Processed).
			Int("clusters", summary.Clusters).
			Msg("dry run, stories and links not written")
		return summary, nil
	}

	var storyFingerprints []db.StoryFingerprint
	if len(built.Clusters) > 0 {
		storyFingerprints, err = s.pool.ListRecentStoryFingerprints(ctx, now.Add(-storyAttachWindow))
		if err != nil {
			return summary, err
		}
	}

	for _, members := range built.Clusters {
		storyID, created, err := s.resolveStory(ctx, members, storyFingerprints)
		if err != nil {
			return summary, err
		}
		if created {
			summary.NewStories++
		}

		touched := false
		for _, newsID := range members {
			inserted, err := s.pool.LinkStoryArticle(ctx, storyID, newsID)
			if err != nil {
				return summary, err
			}
			if inserted {
				summary.LinksCreated++
				touched = true
			} else {
				summary.LinksSkipped++
			}
		}
		if touched {
			if err := s.pool.TouchStory(ctx, storyID); err != nil {
				return summary, err
			}
		}
	}

	s.log.Info().
		Int("processed", summary.Processed).
		Int("pairs_evaluated", summary.PairsEvaluated).
		Int("clusters", summary.Clusters).
		Int("new_stories", summary.NewStories).
		Int("links_created", summary.LinksCreated).
		Int("links_skipped", summary.LinksSkipped).
		Msg("clustering run finished")
	return summary, nil
}

// resolveStory picks the story a cluster belongs to. The head article's
// fingerprint is checked against recent stories first; failing that the
// cluster joins the lowest story any member is already linked to, and a
// fresh story is created as a last resort.
func (s *Service) resolveStory(ctx context.Context, members []int64, storyFingerprints []db.StoryFingerprint) (int64, bool, error) {
	if len(members) > 0 {
		if storyID, ok, err := s.findNearDuplicateStory(ctx, members[0], storyFingerprints); err != nil {
			return 0, false, err
		} else if ok {
			s.log.Info().Int64("story_id", storyID).Msg("cluster attached to near-duplicate story")
			return storyID, false, nil
		}
	}

	lowest := int64(0)
	for _, newsID := range members {
		storyID, linked, err := s.pool.StoryForArticle(ctx, newsID)
		if err != nil {
			return 0, false, err
		}
		if linked && (lowest == 0 || storyID < lowest) {
			lowest = storyID
		}
	}
	if lowest != 0 {
		return lowest, false, nil
	}

	title, err := s.buildTitle(ctx, members)
	if err != nil {
		return 0, false, err
	}
	storyID, err := s.pool.CreateStory(ctx, title)
	if err != nil {
		return 0, false, err
	}
	s.log.Info().Int64("story_id", storyID).Str("title", title).Msg("story created")
	return storyID, true, nil
}

// findNearDuplicateStory compares the cluster head's fingerprint against
// recent story fingerprints. Only the head is consulted so that one stray
// member cannot pull the whole cluster into an unrelated story.
func (s *Service) findNearDuplicateStory(ctx context.Context, headID int64, storyFingerprints []db.StoryFingerprint) (int64, bool, error) {
	if len(storyFingerprints) == 0 {
		return 0, false, nil
	}

	fp, ok, err := s.pool.GetFingerprint(ctx, headID)
	if err != nil {
		return 0, false, err
	}
	if !ok || fp.TitleSig == "" {
		return 0, false, nil
	}

	candidate := antidup.Candidate{ID: headID, TitleSig: fp.TitleSig}
	if fp.EntitySig != nil {
		candidate.EntitySig = *fp.EntitySig
	}

	for _, sf := range storyFingerprints {
		kept := antidup.Candidate{ID: sf.NewsID, TitleSig: sf.TitleSig}
		if sf.EntitySig != nil {
			kept.EntitySig = *sf.EntitySig
		}
		if match, isDup := antidup.IsNearDuplicate(candidate, []antidup.Candidate{kept}); isDup {
			s.log.Debug().
				Int64("news_id", headID).
				Int64("matched_news_id", match.DuplicateOf).
				Float64("jaccard", match.Jaccard).
				Msg("near-duplicate story match")
			return sf.StoryID, true, nil
		}
	}
	return 0, false, nil
}

// buildTitle assembles titler inputs for the cluster members and refines a
// shared headline.
func (s *Service) buildTitle(ctx context.Context, members []int64) (string, error) {
	titlerArticles := make([]titler.Article, 0, len(members))
	for _, newsID := range members {
		article, err := s.pool.GetArticle(ctx, newsID)
		if err != nil {
			return "", err
		}

		entry := titler.Article{
			ID:        article.NewsID,
			Title:     article.Title,
			Published: article.PublishedAt,
		}

		tagList, err := s.pool.ListArticleTags(ctx, newsID)
		if err != nil {
			return "", err
		}
		for _, tag := range tagList {
			switch tag.Type {
			case tags.TypeSport:
				entry.Sports = append(entry.Sports, tag.Name)
			case tags.TypeTournament:
				entry.Tournaments = append(entry.Tournaments, tag.Name)
			case tags.TypeTeam:
				entry.Teams = append(entry.Teams, tag.Name)
			case tags.TypePlayer:
				entry.Players = append(entry.Players, tag.Name)
			}
		}
		titlerArticles = append(titlerArticles, entry)
	}
	return titler.Refine(titlerArticles), nil
}
