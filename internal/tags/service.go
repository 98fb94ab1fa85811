package tags

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/sportwire/internal/db"
	"horse.fit/sportwire/internal/normalize"
)

// Service owns tag identity, typing, and entity canonicalization.
type Service struct {
	pool *db.Pool
	log  zerolog.Logger
}

// NewService wires a tag service over the shared pool.
func NewService(pool *db.Pool, log zerolog.Logger) *Service {
	return &Service{pool: pool, log: log.With().Str("component", "tags").Logger()}
}

// UpsertTag resolves a crawled tag reference to a stored tag. Identity is
// the normalized URL first, then the case-insensitive name. A stored unknown
// type is upgraded once when a more specific type is detected; a specific
// type is never changed.
func (s *Service) UpsertTag(ctx context.Context, name, rawURL, surrounding string) (db.TagRecord, error) {
	if name == "" && rawURL == "" {
		return db.TagRecord{}, fmt.Errorf("tag has neither name nor url")
	}

	normalizedURL := ""
	if rawURL != "" {
		normalizedURL = normalize.URL(rawURL)
	}

	detected := Classify(ClassifyInput{Name: name, URL: normalizedURL, Context: surrounding})

	var (
		rec   db.TagRecord
		found bool
		err   error
	)
	if normalizedURL != "" {
		rec, found, err = s.pool.FindTagByURL(ctx, normalizedURL)
		if err != nil {
			return db.TagRecord{}, err
		}
	}
	if !found && name != "" {
		rec, found, err = s.pool.FindTagByName(ctx, name)
		if err != nil {
			return db.TagRecord{}, err
		}
	}

	if !found {
		var urlPtr *string
		if normalizedURL != "" {
			urlPtr = &normalizedURL
		}
		tagType := detected
		if tagType == "" {
			tagType = TypeUnknown
		}
		tagID, err := s.pool.InsertTag(ctx, name, urlPtr, tagType)
		if err != nil {
			return db.TagRecord{}, err
		}
		rec = db.TagRecord{TagID: tagID, Name: name, URL: urlPtr, Type: tagType}
		s.log.Debug().Int64("tag_id", tagID).Str("name", name).Str("type", tagType).Msg("tag created")
	} else {
		if rec.URL == nil && normalizedURL != "" {
			if err := s.pool.FillTagURL(ctx, rec.TagID, normalizedURL); err != nil {
				return db.TagRecord{}, err
			}
			rec.URL = &normalizedURL
		}
		if ShouldUpgrade(rec.Type, detected) {
			if err := s.pool.UpdateTagType(ctx, rec.TagID, detected); err != nil {
				return db.TagRecord{}, err
			}
			s.log.Info().
				Int64("tag_id", rec.TagID).
				Str("name", rec.Name).
				Str("from", rec.Type).
				Str("to", detected).
				Msg("tag type upgraded")
			rec.Type = detected
		}
	}

	if rec.Type != TypeUnknown {
		if err := s.ensureAlias(ctx, rec); err != nil {
			return db.TagRecord{}, err
		}
	}

	return rec, nil
}

// ensureAlias keeps the alias table in lockstep with typed tags: the
// normalized tag name maps to a canonical entity of the tag's type.
func (s *Service) ensureAlias(ctx context.Context, rec db.TagRecord) error {
	aliasNormalized := normalize.Token(rec.Name)
	if aliasNormalized == "" {
		return nil
	}

	entityID, err := s.pool.EnsureEntity(ctx, aliasNormalized, rec.Type, nil)
	if err != nil {
		return err
	}

	source := "championat"
	if err := s.pool.UpsertEntityAlias(ctx, rec.Name, aliasNormalized, rec.Type, entityID, &source, nil); err != nil {
		return err
	}
	return nil
}

// AssignReport summarizes one entity-assignment pass over an article.
type AssignReport struct {
	NewsID    int64
	Resolved  int
	Unknown   []string
	Conflicts []string
	Changed   bool
}

// AssignEntities fills the per-article entity slots from its typed tags.
// The first resolved entity per slot wins; later different entities are
// reported as conflicts. Existing slot values are preferred when
// preferExisting is set.
func (s *Service) AssignEntities(ctx context.Context, newsID int64, tagList []db.TagRecord, preferExisting bool) (AssignReport, error) {
	report := AssignReport{NewsID: newsID}

	slots := map[string]*int64{
		TypeSport:      nil,
		TypeTournament: nil,
		TypeTeam:       nil,
		TypePlayer:     nil,
	}

	for _, tag := range tagList {
		if _, ok := slots[tag.Type]; !ok {
			if tag.Type != TypeUnknown {
				report.Unknown = append(report.Unknown, tag.Name)
			}
			continue
		}

		aliasNormalized := normalize.Token(tag.Name)
		entityID, found, err := s.pool.ResolveEntityAlias(ctx, aliasNormalized, tag.Type)
		if err != nil {
			return report, err
		}
		if !found {
			report.Unknown = append(report.Unknown, tag.Name)
			continue
		}
		report.Resolved++

		current := slots[tag.Type]
		switch {
		case current == nil:
			id := entityID
			slots[tag.Type] = &id
		case *current != entityID:
			report.Conflicts = append(report.Conflicts, fmt.Sprintf("%s:%s", tag.Type, tag.Name))
		}
	}

	existing, hasExisting, err := s.pool.GetAssignment(ctx, newsID)
	if err != nil {
		return report, err
	}

	next := db.AssignmentRecord{
		NewsID:       newsID,
		SportID:      slots[TypeSport],
		TournamentID: slots[TypeTournament],
		TeamID:       slots[TypeTeam],
		PlayerID:     slots[TypePlayer],
	}
	if hasExisting && preferExisting {
		next.SportID = keepExisting(existing.SportID, next.SportID)
		next.TournamentID = keepExisting(existing.TournamentID, next.TournamentID)
		next.TeamID = keepExisting(existing.TeamID, next.TeamID)
		next.PlayerID = keepExisting(existing.PlayerID, next.PlayerID)
	}

	if hasExisting && assignmentEqual(existing, next) {
		return report, nil
	}

	if err := s.pool.UpsertAssignment(ctx, next); err != nil {
		return report, err
	}
	report.Changed = true

	if len(report.Conflicts) > 0 {
		s.log.Warn().
			Int64("news_id", newsID).
			Strs("conflicts", report.Conflicts).
			Msg("conflicting entity assignments, first resolved entity kept")
	}
	return report, nil
}

func keepExisting(existing, detected *int64) *int64 {
	if existing != nil {
		return existing
	}
	return detected
}

func assignmentEqual(a, b db.AssignmentRecord) bool {
	return int64PtrEqual(a.SportID, b.SportID) &&
		int64PtrEqual(a.TournamentID, b.TournamentID) &&
		int64PtrEqual(a.TeamID, b.TeamID) &&
		int64PtrEqual(a.PlayerID, b.PlayerID)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
