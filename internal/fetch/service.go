package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/fingerprint"
	"horse.fit/sportwire/internal/langdetect"
	"horse.fit/sportwire/internal/language"
	"horse.fit/sportwire/internal/normalize"
	"horse.fit/sportwire/internal/reader"
	"horse.fit/sportwire/internal/tags"
)

const (
	listingPagePattern = "https://www.championat.com/news/%d.html"

	defaultMaxPages = 5
	// tagContextRunes is how much body text tag typing sees.
	tagContextRunes = 2000
)

// Options controls one sync run.
type Options struct {
	// AnchorURL overrides the stored anchor; the walk stops when it is seen.
	AnchorURL string
	MaxPages  int
	// MaxArticles caps processed articles, 0 means no cap.
	MaxArticles int
	// DryRun fetches and parses without writing anything.
	DryRun bool
	// Smoke implies DryRun and walks the first listing page only.
	Smoke bool
}

// Summary reports what one sync run did.
type Summary struct {
	PagesWalked int `json:"pages_walked"`
	Processed   int `json:"processed"`
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Failed      int `json:"failed"`
	TagLinks    int `json:"tag_links"`
}

// Service crawls the portal incrementally and persists articles, tags, and
// fingerprints.
type Service struct {
	pool   *db.Pool
	client *Client
	tags   *tags.Service
	loc    *time.Location
	log    zerolog.Logger
}

// NewService wires a sync service. loc is the portal's local timezone used
// to interpret listing timestamps.
func NewService(pool *db.Pool, client *Client, tagService *tags.Service, loc *time.Location, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		pool:   pool,
		client: client,
		tags:   tagService,
		loc:    loc,
		log:    log.With().Str("component", "fetch").Logger(),
	}
}

type pendingCard struct {
	card      ListingCard
	dateLabel string
	canonical string
}

// Run walks listing pages newest first until the anchor article or the page
// cap is reached, then processes every unseen card.
func (s *Service) Run(ctx context.Context, opts Options) (Summary, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	dryRun := opts.DryRun
	if opts.Smoke {
		dryRun = true
		maxPages = 1
	}

	anchor := strings.TrimSpace(opts.AnchorURL)
	if anchor == "" {
		stored, err := s.pool.AnchorURL(ctx)
		if err != nil {
			return Summary{}, err
		}
		anchor = stored
	}
	if anchor != "" {
		anchor = normalize.URL(anchor)
	}
	s.log.Info().
		Str("anchor", anchor).
		Int("max_pages", maxPages).
		Bool("dry_run", dryRun).
		Msg("sync started")

	pending, pagesWalked, err := s.collectCards(ctx, anchor, maxPages)
	if err != nil {
		return Summary{PagesWalked: pagesWalked}, err
	}

	summary := Summary{PagesWalked: pagesWalked}
	for _, item := range pending {
		if opts.MaxArticles > 0 && summary.Processed >= opts.MaxArticles {
			break
		}
		summary.Processed++

		if dryRun {
			if err := s.previewCard(ctx, item); err != nil {
				summary.Failed++
				s.log.Error().Str("url", item.canonical).Err(err).Msg("article preview failed")
			} else {
				s.log.Info().Str("url", item.canonical).Msg("article parsed (dry run)")
			}
			continue
		}

		inserted, tagLinks, err := s.processCard(ctx, item)
		if err != nil {
			summary.Failed++
			s.log.Error().Str("url", item.canonical).Err(err).Msg("article failed")
			continue
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Updated++
		}
		summary.TagLinks += tagLinks
		s.log.Info().
			Str("url", item.canonical).
			Bool("inserted", inserted).
			Int("tag_links", tagLinks).
			Msg("article processed")
	}

	s.log.Info().
		Int("pages_walked", summary.PagesWalked).
		Int("processed", summary.Processed).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Int("tag_links", summary.TagLinks).
		Msg("sync finished")
	return summary, nil
}

// collectCards walks listing pages until the anchor is seen.
func (s *Service) collectCards(ctx context.Context, anchor string, maxPages int) ([]pendingCard, int, error) {
	pending := make([]pendingCard, 0, 64)
	pagesWalked := 0

	for page := 1; page <= maxPages; page++ {
		pageURL := fmt.Sprintf(listingPagePattern, page)
		body, err := s.client.Get(ctx, pageURL)
		if err != nil {
			return pending, pagesWalked, fmt.Errorf("fetch listing page %d: %w", page, err)
		}
		pagesWalked++

		groups, err := ParseListing(body)
		if err != nil {
			return pending, pagesWalked, err
		}

		for _, group := range groups {
			for _, card := range group.Cards {
				resolved, err := resolveURL(pageURL, card.URL)
				if err != nil {
					s.log.Warn().Str("href", card.URL).Err(err).Msg("skip unresolvable card url")
					continue
				}
				canonical := normalize.URL(resolved)
				if anchor != "" && canonical == anchor {
					s.log.Info().Int("page", page).Msg("anchor reached")
					return pending, pagesWalked, nil
				}
				pending = append(pending, pendingCard{
					card:      card,
					dateLabel: group.DateLabel,
					canonical: canonical,
				})
			}
		}
	}

	if anchor != "" {
		s.log.Warn().Int("pages", pagesWalked).Msg("anchor not reached within page cap")
	}
	return pending, pagesWalked, nil
}

// previewCard fetches and parses an article without touching the store.
func (s *Service) previewCard(ctx context.Context, item pendingCard) error {
	body, err := s.client.Get(ctx, item.canonical)
	if err != nil {
		return err
	}
	_, err = ParseArticle(body, item.canonical)
	return err
}

func (s *Service) processCard(ctx context.Context, item pendingCard) (bool, int, error) {
	body, err := s.client.Get(ctx, item.canonical)
	if err != nil {
		return false, 0, err
	}

	article, err := ParseArticle(body, item.canonical)
	if err != nil {
		return false, 0, err
	}

	canonical := item.canonical
	if article.CanonicalURL != "" {
		canonical = normalize.URL(article.CanonicalURL)
	}

	text := article.Body
	if text == "" {
		extracted, err := reader.FetchText(ctx, canonical, article.Title)
		if err != nil {
			s.log.Warn().Str("url", canonical).Err(err).Msg("readability fallback failed")
		} else {
			text = extracted
		}
	}

	publishedAt := s.resolvePublished(item)

	lang := language.NormalizeCode(langdetect.DetectISO6391(article.Title + " " + text))
	if lang == "" {
		lang = "ru"
	}

	draft := db.ArticleDraft{
		URL:         canonical,
		Title:       article.Title,
		Body:        text,
		PublishedAt: publishedAt,
		Lang:        lang,
	}
	if len(article.ImageURLs) > 0 {
		if raw, err := json.Marshal(article.ImageURLs); err == nil {
			draft.Images = raw
		}
	}
	if len(article.VideoURLs) > 0 {
		if raw, err := json.Marshal(article.VideoURLs); err == nil {
			draft.Videos = raw
		}
	}

	newsID, inserted, err := s.pool.UpsertArticle(ctx, draft)
	if err != nil {
		return false, 0, err
	}

	tagLinks, tagRecords, err := s.persistTags(ctx, newsID, canonical, article, text)
	if err != nil {
		return inserted, tagLinks, err
	}

	if _, err := s.tags.AssignEntities(ctx, newsID, tagRecords, true); err != nil {
		return inserted, tagLinks, err
	}

	if err := s.storeFingerprint(ctx, newsID, article.Title, tagRecords); err != nil {
		return inserted, tagLinks, err
	}

	return inserted, tagLinks, nil
}

func (s *Service) resolvePublished(item pendingCard) *time.Time {
	if item.dateLabel == "" {
		return nil
	}
	iso, err := normalize.ToISO(item.dateLabel, item.card.TimeLabel)
	if err != nil {
		s.log.Warn().
			Str("date", item.dateLabel).
			Str("time", item.card.TimeLabel).
			Err(err).
			Msg("unparseable listing timestamp")
		return nil
	}
	parsed, err := normalize.ParseISOLocal(iso, s.loc)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}

func (s *Service) persistTags(ctx context.Context, newsID int64, articleURL string, article Article, text string) (int, []db.TagRecord, error) {
	surrounding := compactContext(text)
	links := 0
	records := make([]db.TagRecord, 0, len(article.Tags))

	for _, ref := range article.Tags {
		tagURL := ""
		if ref.URL != "" {
			resolved, err := resolveURL(articleURL, ref.URL)
			if err == nil {
				tagURL = resolved
			}
		}

		rec, err := s.tags.UpsertTag(ctx, ref.Name, tagURL, surrounding)
		if err != nil {
			s.log.Warn().Str("tag", ref.Name).Err(err).Msg("tag upsert failed")
			continue
		}
		records = append(records, rec)

		inserted, err := s.pool.LinkArticleTag(ctx, newsID, rec.TagID)
		if err != nil {
			return links, records, err
		}
		if inserted {
			links++
		}
	}
	return links, records, nil
}

func (s *Service) storeFingerprint(ctx context.Context, newsID int64, title string, tagRecords []db.TagRecord) error {
	ents := fingerprint.Entities{}
	for _, rec := range tagRecords {
		switch rec.Type {
		case tags.TypeSport:
			if ents.Sport == "" {
				ents.Sport = rec.Name
			}
		case tags.TypeTournament:
			if ents.Tournament == "" {
				ents.Tournament = rec.Name
			}
		case tags.TypeTeam:
			if ents.Team == "" {
				ents.Team = rec.Name
			}
		case tags.TypePlayer:
			if ents.Player == "" {
				ents.Player = rec.Name
			}
		}
	}

	titleSig, entitySig := fingerprint.Compute(title, ents)
	rec := db.FingerprintRecord{NewsID: newsID, TitleSig: titleSig}
	if entitySig != "" {
		rec.EntitySig = &entitySig
	}
	return s.pool.UpsertFingerprint(ctx, rec)
}

func compactContext(text string) string {
	runes := []rune(text)
	if len(runes) > tagContextRunes {
		runes = runes[:tagContextRunes]
	}
	return string(runes)
}

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	resolved, err := baseURL.Parse(href)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}
