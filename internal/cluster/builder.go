package cluster

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"horse.fit/sportwire/internal/fingerprint"
)

const (
	// titleThreshold is the minimum title-token Jaccard for the pair predicate.
	titleThreshold = 0.6
	// timeDeltaLimit is the publication-time window for the pair predicate.
	timeDeltaLimit = 6 * time.Hour
)

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Item is one article inside a clustering window.
type Item struct {
	NewsID        int64
	Title         string
	Tokens        map[string]struct{}
	Published     *time.Time
	EntityIDs     map[int64]struct{}
	SportIDs      []int64
	TournamentIDs []int64
}

// NewItem prepares an article for pairwise evaluation.
func NewItem(newsID int64, title string, published *time.Time, tagIDs, sportIDs, tournamentIDs []int64) Item {
	entityIDs := make(map[int64]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		entityIDs[id] = struct{}{}
	}
	return Item{
		NewsID:        newsID,
		Title:         title,
		Tokens:        tokenizeTitle(title),
		Published:     published,
		EntityIDs:     entityIDs,
		SportIDs:      sportIDs,
		TournamentIDs: tournamentIDs,
	}
}

func tokenizeTitle(title string) map[string]struct{} {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(title), " ")
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(cleaned) {
		tokens[field] = struct{}{}
	}
	return tokens
}

// PairResult reports which of the three predicates held for a pair.
type PairResult struct {
	TitleSimilar  bool
	SharedEntity  bool
	CloseInTime   bool
	TitleJaccard  float64
	PositiveCount int
}

// EvaluatePair applies the 2-of-3 pair predicate: title Jaccard at or above
// the threshold, non-empty entity intersection, and publication times within
// the window (missing timestamps fail the time predicate).
func EvaluatePair(a, b Item) PairResult {
	result := PairResult{
		TitleJaccard: jaccardSets(a.Tokens, b.Tokens),
	}
	result.TitleSimilar = result.TitleJaccard >= titleThreshold

	for id := range a.EntityIDs {
		if _, ok := b.EntityIDs[id]; ok {
			result.SharedEntity = true
			break
		}
	}

	if a.Published != nil && b.Published != nil {
		delta := a.Published.Sub(*b.Published)
		if delta < 0 {
			delta = -delta
		}
		result.CloseInTime = delta <= timeDeltaLimit
	}

	for _, held := range []bool{result.TitleSimilar, result.SharedEntity, result.CloseInTime} {
		if held {
			result.PositiveCount++
		}
	}
	return result
}

func jaccardSets(a, b map[string]struct{}) float64 {
	tokensA := make([]string, 0, len(a))
	for token := range a {
		tokensA = append(tokensA, token)
	}
	tokensB := make([]string, 0, len(b))
	for token := range b {
		tokensB = append(tokensB, token)
	}
	return fingerprint.Jaccard(tokensA, tokensB)
}

// bucketKeys returns the candidate-generation bucket keys for an item: one
// per sport id and one per tournament id, or the shared null bucket when the
// item has neither.
func bucketKeys(item Item) []string {
	keys := make([]string, 0, len(item.SportIDs)+len(item.TournamentIDs))
	for _, id := range item.SportIDs {
		keys = append(keys, "sport|"+strconv.FormatInt(id, 10))
	}
	for _, id := range item.TournamentIDs {
		keys = append(keys, "tournament|"+strconv.FormatInt(id, 10))
	}
	if len(keys) == 0 {
		keys = append(keys, "none")
	}
	return keys
}

// BuildResult carries the clusters plus evaluation counters for logging.
type BuildResult struct {
	Clusters       [][]int64
	PairsEvaluated int
}

// Build groups window items into clusters. Clusters are sorted largest
// first; members inside a cluster are sorted newest first.
func Build(items []Item) BuildResult {
	byID := make(map[int64]Item, len(items))
	buckets := make(map[string][]int64)
	for _, item := range items {
		byID[item.NewsID] = item
		for _, key := range bucketKeys(item) {
			buckets[key] = append(buckets[key], item.NewsID)
		}
	}

	uf := newUnionFind()
	evaluated := make(map[[2]int64]struct{})
	pairsEvaluated := 0

	bucketNames := make([]string, 0, len(buckets))
	for name := range buckets {
		bucketNames = append(bucketNames, name)
	}
	sort.Strings(bucketNames)

	for _, name := range bucketNames {
		members := buckets[name]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				key := pairKey(members[i], members[j])
				if _, seen := evaluated[key]; seen {
					continue
				}
				evaluated[key] = struct{}{}
				pairsEvaluated++

				result := EvaluatePair(byID[members[i]], byID[members[j]])
				if result.PositiveCount >= 2 {
					uf.Union(members[i], members[j])
				}
			}
		}
	}

	clusters := make([][]int64, 0)
	for _, members := range uf.Components() {
		if len(members) < 2 {
			continue
		}
		sortNewestFirst(members, byID)
		clusters = append(clusters, members)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})

	return BuildResult{Clusters: clusters, PairsEvaluated: pairsEvaluated}
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func sortNewestFirst(members []int64, byID map[int64]Item) {
	sort.Slice(members, func(i, j int) bool {
		a, b := byID[members[i]], byID[members[j]]
		switch {
		case a.Published == nil && b.Published == nil:
			return members[i] > members[j]
		case a.Published == nil:
			return false
		case b.Published == nil:
			return true
		case !a.Published.Equal(*b.Published):
			return a.Published.After(*b.Published)
		default:
			return members[i] > members[j]
		}
	})
}
