package tags

import (
	"regexp"
	"strings"
)

// Tag types, from least to most specific knowledge.
const (
	TypeUnknown    = "unknown"
	TypeSport      = "sport"
	TypeTournament = "tournament"
	TypeTeam       = "team"
	TypePlayer     = "player"
)

// roleMarkerWindow is how far around a mention role markers are searched.
const roleMarkerWindow = 40

var (
	teamAbbrevRe = regexp.MustCompile(`\b(FC|CF|SC|HC|BC)\b`)

	// Latin or Cyrillic title-case words, two or three of them.
	personNameRe = regexp.MustCompile(`^[A-ZА-ЯЁ][a-zа-яё\-]+(?: [A-ZА-ЯЁ][a-zа-яё\-]+){1,2}$`)

	teamPrefixes = []string{
		"фк ", "хк ", "бк ", "fc ", "hc ",
	}

	knownClubs = map[string]struct{}{
		"цска": {}, "зенит": {}, "спартак": {}, "динамо": {},
		"локомотив": {}, "краснодар": {}, "ростов": {}, "ак барс": {},
		"ска": {}, "авангард": {}, "металлург": {}, "рубин": {},
	}

	sportSections = map[string]struct{}{
		"football": {}, "hockey": {}, "basketball": {}, "tennis": {},
		"boxing": {}, "volleyball": {}, "biathlon": {}, "figureskating": {},
		"auto": {}, "othersport": {}, "olympic": {},
	}

	tournamentMarkers = []string{
		"лига", "кубок", "чемпионат", "первенство", "турнир",
		"рпл", "кхл", "нхл", "нба", "апл", "серия а", "бундеслига",
		"олимпиада", "евро-",
	}

	roleMarkers = []string{
		"нападающий", "защитник", "вратарь", "полузащитник", "форвард",
		"голкипер", "тренер", "футболист", "хоккеист", "теннисист",
		"goalkeeper", "forward", "defender", "striker", "coach",
	}
)

// ClassifyInput bundles the signals available when a tag is first seen.
type ClassifyInput struct {
	Name string
	URL  string
	// Context is surrounding article text, used for player role markers.
	Context string
}

// Classify derives a tag type from its URL path, its name shape, and role
// markers near the mention. URL evidence wins; team checks run before player
// checks so club names in title case stay teams.
func Classify(in ClassifyInput) string {
	if t := classifyByURL(in.URL); t != TypeUnknown {
		return t
	}
	if isTeamName(in.Name) {
		return TypeTeam
	}
	if isTournamentName(in.Name) {
		return TypeTournament
	}
	if isPlayerName(in.Name, in.Context) {
		return TypePlayer
	}
	return TypeUnknown
}

func classifyByURL(rawURL string) string {
	if rawURL == "" {
		return TypeUnknown
	}
	path := strings.ToLower(rawURL)
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.Index(path, "/"); idx >= 0 {
		path = path[idx:]
	} else {
		path = "/"
	}

	switch {
	case strings.Contains(path, "/teams/") || strings.Contains(path, "/team/"):
		return TypeTeam
	case strings.Contains(path, "/players/") || strings.Contains(path, "/player/") || strings.Contains(path, "/igrok/"):
		return TypePlayer
	case strings.Contains(path, "/tournament/") || strings.Contains(path, "/tournaments/") || strings.Contains(path, "/league/"):
		return TypeTournament
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] != "" {
		if _, ok := sportSections[segments[0]]; ok {
			return TypeSport
		}
	}
	return TypeUnknown
}

func isTeamName(name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return false
	}
	for _, prefix := range teamPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	if _, ok := knownClubs[lowered]; ok {
		return true
	}
	return teamAbbrevRe.MatchString(name)
}

func isTournamentName(name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, marker := range tournamentMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func isPlayerName(name, context string) bool {
	trimmed := strings.TrimSpace(name)
	if !personNameRe.MatchString(trimmed) {
		return false
	}
	if context == "" {
		return true
	}
	return hasRoleMarkerNearby(trimmed, context)
}

// hasRoleMarkerNearby reports whether a role marker occurs within the window
// before or after any mention of name. A name that never occurs in the
// context still counts as a player shape.
func hasRoleMarkerNearby(name, context string) bool {
	loweredContext := strings.ToLower(context)
	loweredName := strings.ToLower(name)

	idx := strings.Index(loweredContext, loweredName)
	if idx < 0 {
		return true
	}

	for idx >= 0 {
		start := idx - roleMarkerWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(loweredName) + roleMarkerWindow
		if end > len(loweredContext) {
			end = len(loweredContext)
		}
		window := loweredContext[start:end]
		for _, marker := range roleMarkers {
			if strings.Contains(window, marker) {
				return true
			}
		}
		next := strings.Index(loweredContext[idx+1:], loweredName)
		if next < 0 {
			break
		}
		idx = idx + 1 + next
	}
	return false
}

// typeRank orders types so upgrades only refine unknown tags.
func typeRank(t string) int {
	if t == TypeUnknown || t == "" {
		return 0
	}
	return 1
}

// ShouldUpgrade reports whether a stored tag type may be replaced by a newly
// detected one. Specific types never flip to another specific type.
func ShouldUpgrade(current, detected string) bool {
	return typeRank(current) == 0 && typeRank(detected) > 0
}
