package antidup

import "testing"

func TestFilterEntityRelaxation(t *testing.T) {
	t.Parallel()

	entitySig := "team:zenit|team:spartak"
	candidates := []Candidate{
		{ID: 1, TitleSig: "spartak|win|zenit", EntitySig: entitySig},
		{ID: 2, TitleSig: "spartak|victory|zenit", EntitySig: entitySig},
		{ID: 3, TitleSig: "spartak|victor|win|zenit", EntitySig: entitySig},
		{ID: 4, TitleSig: "spartak|victory|win|zenit", EntitySig: entitySig},
	}

	visible, hidden := Filter(candidates)
	if len(visible) != 3 {
		t.Fatalf("expected 3 visible, got %d", len(visible))
	}
	if len(hidden) != 1 {
		t.Fatalf("expected 1 hidden, got %d", len(hidden))
	}
	if hidden[0].ID != 4 {
		t.Fatalf("expected article 4 hidden, got %d", hidden[0].ID)
	}
	if got := hidden[0].Payload["duplicate_of"]; got != int64(3) {
		t.Fatalf("unexpected duplicate_of: %v", got)
	}
	if got := hidden[0].Payload["entity_match"]; got != true {
		t.Fatalf("expected entity_match=true, got %v", got)
	}
}

func TestFilterStrictThresholdWithoutEntities(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: 1, TitleSig: "a|b|c|d"},
		{ID: 2, TitleSig: "a|b|c|d"},
		{ID: 3, TitleSig: "a|b|c|e"},
	}

	visible, hidden := Filter(candidates)
	if len(visible) != 2 || len(hidden) != 1 {
		t.Fatalf("unexpected partition: visible=%d hidden=%d", len(visible), len(hidden))
	}
	if hidden[0].ID != 2 {
		t.Fatalf("expected identical later article hidden, got %d", hidden[0].ID)
	}
}

func TestFilterFirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{ID: 10, TitleSig: "x|y|z"},
		{ID: 11, TitleSig: "x|y|z"},
		{ID: 12, TitleSig: "x|y|z"},
	}

	visible, hidden := Filter(candidates)
	if len(visible) != 1 || visible[0].ID != 10 {
		t.Fatalf("expected only first article visible, got %+v", visible)
	}
	for _, h := range hidden {
		if h.Payload["duplicate_of"] != int64(10) {
			t.Fatalf("expected duplicate_of=10, got %v", h.Payload["duplicate_of"])
		}
	}
}
