package fingerprint

import "testing"

func TestTokenizeDropsStopwords(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("Зенит и Спартак сыграли в Москве")
	want := []string{"зенит", "спартак", "сыграли", "москве"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("token %d: got %q, want %q", i, tokens[i], token)
		}
	}
}

func TestTitleSignatureTopTokensSorted(t *testing.T) {
	t.Parallel()

	tokens := []string{"b", "a", "a", "c", "c", "c", "d", "e", "f", "g", "h", "i", "j"}
	sig := TitleSignature(tokens)
	// c(3) and a(2) lead; the remaining six slots fill lexicographically.
	if sig != "a|b|c|d|e|f|g|h" {
		t.Fatalf("unexpected signature: %q", sig)
	}
}

func TestEntitySignatureSlotOrder(t *testing.T) {
	t.Parallel()

	sig := EntitySignature(Entities{
		Sport:      "Футбол",
		Tournament: "РПЛ",
		Team:       "Зенит",
		Player:     "",
	})
	if sig != "t:рпл|team:зенит|s:футбол" {
		t.Fatalf("unexpected entity signature: %q", sig)
	}
	if got := EntitySignature(Entities{}); got != "" {
		t.Fatalf("expected empty signature, got %q", got)
	}
}

func TestJaccardConventions(t *testing.T) {
	t.Parallel()

	if got := Jaccard(nil, nil); got != 1.0 {
		t.Fatalf("two empty sets: got %v, want 1.0", got)
	}
	if got := Jaccard([]string{"a"}, nil); got != 0.0 {
		t.Fatalf("one empty set: got %v, want 0.0", got)
	}
	if got := Jaccard([]string{"a", "b"}, []string{"b", "c"}); got != 1.0/3.0 {
		t.Fatalf("unexpected jaccard: %v", got)
	}

	sig, _ := Compute("Зенит обыграл Спартак", Entities{})
	if got := Jaccard(SignatureTokens(sig), SignatureTokens(sig)); got != 1.0 {
		t.Fatalf("self jaccard: got %v, want 1.0", got)
	}
}
