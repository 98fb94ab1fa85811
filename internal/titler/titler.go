package titler

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"horse.fit/sportwire/internal/normalize"
)

const maxTitleLength = 140

// FallbackTitle is used when a cluster yields no usable tokens at all.
const FallbackTitle = "Сводка дня"

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Domain stopwords: generic sports vocabulary plus cross-language function
// words that never carry a story topic.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "your": {}, "their": {}, "into": {}, "after": {},
	"before": {}, "over": {}, "under": {}, "about": {}, "against": {},
	"across": {}, "around": {}, "through": {}, "onto": {}, "between": {},
	"without": {}, "within": {}, "while": {}, "whose": {}, "where": {},
	"when": {},
	"дело": {}, "дня": {}, "новости": {}, "новость": {},
	"матч": {}, "матча": {}, "матче": {},
	"сезона": {}, "сезон": {},
	"игра": {}, "игры": {}, "игре": {}, "игрок": {}, "игроки": {},
	"тур": {}, "туре": {}, "турнир": {}, "турнира": {}, "турнире": {},
	"команда": {}, "команды": {}, "команде": {},
	"клуб": {}, "клуба": {}, "клубе": {},
	"год": {}, "года": {}, "году": {},
	"что": {}, "как": {}, "где": {}, "когда": {}, "после": {},
	"перед": {}, "при": {}, "под": {}, "над": {}, "между": {},
	"если": {}, "почему": {}, "из": {}, "на": {}, "по": {}, "в": {},
	"во": {}, "к": {}, "ко": {}, "о": {}, "об": {}, "обо": {}, "за": {},
	"до": {}, "без": {}, "со": {}, "от": {}, "то": {}, "так": {},
	"же": {}, "ли": {}, "не": {}, "да": {}, "но": {}, "или": {}, "бы": {},
}

// Article is one cluster member as seen by the title refiner.
type Article struct {
	ID          int64
	Title       string
	Published   *time.Time
	Sports      []string
	Tournaments []string
	Teams       []string
	Players     []string
}

type titleToken struct {
	normalized string
	original   string
}

type articleTokens struct {
	article Article
	ordered []titleToken
	set     map[string]struct{}
}

// Refine produces a human-readable story title from a cluster's articles.
func Refine(articles []Article) string {
	if len(articles) == 0 {
		return FallbackTitle
	}

	tokenCounts := make(map[string]int)
	infos := make([]articleTokens, 0, len(articles))
	for _, article := range articles {
		ordered := extractTokens(article.Title)
		set := make(map[string]struct{}, len(ordered))
		for _, token := range ordered {
			set[token.normalized] = struct{}{}
		}
		for normalized := range set {
			tokenCounts[normalized]++
		}
		infos = append(infos, articleTokens{article: article, ordered: ordered, set: set})
	}

	required := int(math.Ceil(0.6 * float64(len(articles))))
	if required < 1 {
		required = 1
	}
	commonTokens := make(map[string]struct{})
	for token, count := range tokenCounts {
		if count >= required {
			commonTokens[token] = struct{}{}
		}
	}

	entityName := selectPrimaryEntity(articles)
	topic := buildTopic(infos, commonTokens)

	if topic == "" {
		if entityName != "" {
			return truncate("Сводка: "+entityName, maxTitleLength)
		}
		representative := selectRepresentativeTitle(infos)
		if representative == "" {
			representative = FallbackTitle
		}
		return truncate(representative, maxTitleLength)
	}

	if entityName != "" {
		topic = trimEntityPrefix(topic, entityName)
	}

	var baseTitle string
	switch {
	case entityName != "" && topic != "":
		baseTitle = entityName + " — " + topic
	case entityName != "":
		baseTitle = "Сводка: " + entityName
	default:
		baseTitle = topic
	}

	baseTitle = appendSingleDateSuffix(baseTitle, articles)
	return truncate(baseTitle, maxTitleLength)
}

func extractTokens(title string) []titleToken {
	matches := tokenRe.FindAllString(title, -1)
	tokens := make([]titleToken, 0, len(matches))
	for _, word := range matches {
		normalized := strings.ToLower(word)
		if utf8.RuneCountInString(normalized) <= 1 {
			continue
		}
		if _, skip := stopwords[normalized]; skip {
			continue
		}
		tokens = append(tokens, titleToken{normalized: normalized, original: word})
	}
	return tokens
}

func selectPrimaryEntity(articles []Article) string {
	required := int(math.Ceil(0.5 * float64(len(articles))))
	if required < 1 {
		required = 1
	}

	fields := []func(Article) []string{
		func(a Article) []string { return a.Tournaments },
		func(a Article) []string { return a.Teams },
		func(a Article) []string { return a.Players },
		func(a Article) []string { return a.Sports },
	}

	for _, field := range fields {
		counts := make(map[string]int)
		for _, article := range articles {
			for _, name := range field(article) {
				counts[name]++
			}
		}

		eligible := make([]string, 0, len(counts))
		for name, count := range counts {
			if count >= required {
				eligible = append(eligible, name)
			}
		}
		if len(eligible) == 0 {
			continue
		}
		sort.Slice(eligible, func(i, j int) bool {
			li, lj := utf8.RuneCountInString(eligible[i]), utf8.RuneCountInString(eligible[j])
			if li != lj {
				return li > lj
			}
			return eligible[i] < eligible[j]
		})
		return eligible[0]
	}
	return ""
}

func buildTopic(infos []articleTokens, commonTokens map[string]struct{}) string {
	if len(commonTokens) == 0 {
		return ""
	}

	best := infos[0]
	bestOverlap := -1
	for _, info := range infos {
		overlap := 0
		for token := range info.set {
			if _, ok := commonTokens[token]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = info
		}
	}

	used := make(map[string]struct{})
	words := make([]string, 0, len(best.ordered))
	for _, token := range best.ordered {
		if _, common := commonTokens[token.normalized]; !common {
			continue
		}
		if _, seen := used[token.normalized]; seen {
			continue
		}
		words = append(words, token.original)
		used[token.normalized] = struct{}{}
	}

	return upperFirst(strings.TrimSpace(strings.Join(words, " ")))
}

func selectRepresentativeTitle(infos []articleTokens) string {
	if len(infos) == 0 {
		return ""
	}
	if len(infos) == 1 {
		return infos[0].article.Title
	}

	bestScore := -1.0
	bestTitle := infos[0].article.Title
	for i, info := range infos {
		score := 0.0
		comparisons := 0
		for j, other := range infos {
			if i == j {
				continue
			}
			intersection := 0
			for token := range info.set {
				if _, ok := other.set[token]; ok {
					intersection++
				}
			}
			union := len(info.set) + len(other.set) - intersection
			comparisons++
			if union > 0 {
				score += float64(intersection) / float64(union)
			}
		}
		avg := 0.0
		if comparisons > 0 {
			avg = score / float64(comparisons)
		}
		if avg > bestScore {
			bestScore = avg
			bestTitle = info.article.Title
		}
	}
	return bestTitle
}

func trimEntityPrefix(topic, entityName string) string {
	if !strings.HasPrefix(strings.ToLower(topic), strings.ToLower(entityName)) {
		return topic
	}

	trimmed := topic[len(entityName):]
	trimmed = strings.TrimLeft(trimmed, " —:-–")
	return upperFirst(trimmed)
}

func appendSingleDateSuffix(baseTitle string, articles []Article) string {
	dates := make(map[string]time.Time)
	for _, article := range articles {
		if article.Published == nil {
			continue
		}
		day := article.Published.UTC().Truncate(24 * time.Hour)
		dates[day.Format("2006-01-02")] = day
	}
	if len(dates) != 1 {
		return baseTitle
	}

	var day time.Time
	for _, value := range dates {
		day = value
	}
	suffix := " на " + strconv.Itoa(day.Day()) + " " + normalize.RuMonthName(day.Month())
	if utf8.RuneCountInString(baseTitle)+utf8.RuneCountInString(suffix) <= maxTitleLength {
		return baseTitle + suffix
	}
	return baseTitle
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLower(first) {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
