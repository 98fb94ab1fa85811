package fingerprint

import (
	"regexp"
	"sort"
	"strings"
)

const topTitleTokens = 8

var ruStopwords = map[string]struct{}{
	"и": {}, "в": {}, "на": {}, "к": {}, "по": {}, "о": {}, "от": {},
	"за": {}, "для": {}, "с": {}, "во": {}, "как": {}, "или": {},
	"но": {}, "а": {}, "не": {}, "это": {}, "что": {}, "из": {},
	"со": {}, "же": {}, "бы": {}, "ли": {}, "до": {}, "об": {},
	"обо": {}, "над": {}, "между": {}, "при": {}, "под": {}, "у": {},
	"про": {}, "ещё": {},
}

var enStopwords = map[string]struct{}{
	"and": {}, "or": {}, "the": {}, "a": {}, "an": {}, "of": {},
	"in": {}, "on": {}, "to": {}, "for": {}, "by": {}, "with": {},
	"as": {}, "at": {}, "from": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "it": {}, "its": {}, "their": {}, "your": {},
	"our": {}, "his": {}, "her": {},
}

var wordRe = regexp.MustCompile(`[A-Za-zА-Яа-я0-9\-]+`)

// Entities carries the per-slot entity names used for the entity signature.
type Entities struct {
	Sport      string
	Tournament string
	Team       string
	Player     string
}

// Tokenize splits a title into lowercase content tokens with the built-in
// Russian and English stopwords removed.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	matches := wordRe.FindAllString(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, match := range matches {
		token := strings.ToLower(match)
		if _, skip := ruStopwords[token]; skip {
			continue
		}
		if _, skip := enStopwords[token]; skip {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TitleSignature keeps the top-8 tokens by frequency (ties broken
// lexicographically), sorts them, and joins with "|".
func TitleSignature(tokens []string) string {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}

	unique := make([]string, 0, len(counts))
	for token := range counts {
		unique = append(unique, token)
	}
	sort.Slice(unique, func(i, j int) bool {
		if counts[unique[i]] != counts[unique[j]] {
			return counts[unique[i]] > counts[unique[j]]
		}
		return unique[i] < unique[j]
	})

	if len(unique) > topTitleTokens {
		unique = unique[:topTitleTokens]
	}
	sort.Strings(unique)
	return strings.Join(unique, "|")
}

// EntitySignature builds the slot signature in tournament, team, player,
// sport order. Empty when all slots are absent.
func EntitySignature(entities Entities) string {
	parts := make([]string, 0, 4)
	if v := strings.ToLower(strings.TrimSpace(entities.Tournament)); v != "" {
		parts = append(parts, "t:"+v)
	}
	if v := strings.ToLower(strings.TrimSpace(entities.Team)); v != "" {
		parts = append(parts, "team:"+v)
	}
	if v := strings.ToLower(strings.TrimSpace(entities.Player)); v != "" {
		parts = append(parts, "p:"+v)
	}
	if v := strings.ToLower(strings.TrimSpace(entities.Sport)); v != "" {
		parts = append(parts, "s:"+v)
	}
	return strings.Join(parts, "|")
}

// Compute returns the title and entity signatures for one article.
func Compute(title string, entities Entities) (string, string) {
	return TitleSignature(Tokenize(title)), EntitySignature(entities)
}

// SignatureTokens splits a signature back into its token set.
func SignatureTokens(signature string) []string {
	if signature == "" {
		return nil
	}
	pieces := strings.Split(signature, "|")
	tokens := pieces[:0]
	for _, piece := range pieces {
		if piece != "" {
			tokens = append(tokens, piece)
		}
	}
	return tokens
}

// Jaccard computes |A∩B| / |A∪B|. Two empty sets compare as identical;
// exactly one empty set compares as disjoint.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
