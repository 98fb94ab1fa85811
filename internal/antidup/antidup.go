package antidup

import (
	"math"

	"horse.fit/sportwire/internal/fingerprint"
)

const (
	// JaccardStrict hides an article on title similarity alone.
	JaccardStrict = 0.90
	// JaccardEntity is the relaxed threshold when entity signatures match.
	JaccardEntity = 0.80
)

// Candidate is one fingerprinted article in encounter order.
type Candidate struct {
	ID        int64
	TitleSig  string
	EntitySig string
	Payload   map[string]any
}

// Match describes why a candidate was hidden.
type Match struct {
	DuplicateOf int64
	Jaccard     float64
	EntityMatch bool
}

// IsNearDuplicate compares one candidate against the kept list and reports
// the first kept article it duplicates.
func IsNearDuplicate(candidate Candidate, kept []Candidate) (Match, bool) {
	tokens := fingerprint.SignatureTokens(candidate.TitleSig)
	for _, existing := range kept {
		score := fingerprint.Jaccard(tokens, fingerprint.SignatureTokens(existing.TitleSig))
		entityMatch := candidate.EntitySig != "" &&
			existing.EntitySig != "" &&
			candidate.EntitySig == existing.EntitySig

		if entityMatch && score >= JaccardEntity {
			return Match{DuplicateOf: existing.ID, Jaccard: score, EntityMatch: true}, true
		}
		if score >= JaccardStrict {
			return Match{DuplicateOf: existing.ID, Jaccard: score, EntityMatch: entityMatch}, true
		}
	}
	return Match{}, false
}

// Filter partitions an ordered candidate sequence into visible and hidden
// lists. Order is preserved and the first occurrence always wins. Hidden
// payloads gain duplicate_of, jaccard (rounded to 3 decimals), and
// entity_match keys.
func Filter(candidates []Candidate) (visible []Candidate, hidden []Candidate) {
	visible = make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		match, dup := IsNearDuplicate(candidate, visible)
		if !dup {
			visible = append(visible, candidate)
			continue
		}

		annotated := candidate
		annotated.Payload = clonePayload(candidate.Payload)
		annotated.Payload["duplicate_of"] = match.DuplicateOf
		annotated.Payload["jaccard"] = math.Round(match.Jaccard*1000) / 1000
		annotated.Payload["entity_match"] = match.EntityMatch
		hidden = append(hidden, annotated)
	}
	return visible, hidden
}

func clonePayload(payload map[string]any) map[string]any {
	cloned := make(map[string]any, len(payload)+3)
	for key, value := range payload {
		cloned[key] = value
	}
	return cloned
}
