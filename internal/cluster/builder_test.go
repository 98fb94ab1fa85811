package cluster

import (
	"testing"
	"time"
)

func ts(value string) *time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &parsed
}

func TestEvaluatePairTwoOfThree(t *testing.T) {
	t.Parallel()

	a := NewItem(1, "Зенит обыграл Спартак в финале", ts("2025-08-07T10:00:00Z"), []int64{100}, nil, []int64{7})
	b := NewItem(2, "Зенит обыграл Спартак в серии", ts("2025-08-07T11:30:00Z"), []int64{100}, nil, []int64{7})

	result := EvaluatePair(a, b)
	if !result.TitleSimilar {
		t.Fatalf("expected title predicate to hold, jaccard=%v", result.TitleJaccard)
	}
	if !result.SharedEntity {
		t.Fatalf("expected shared entity predicate to hold")
	}
	if !result.CloseInTime {
		t.Fatalf("expected time predicate to hold")
	}
	if result.PositiveCount != 3 {
		t.Fatalf("unexpected positive count: %d", result.PositiveCount)
	}
}

func TestEvaluatePairMissingTimestampFailsTimePredicate(t *testing.T) {
	t.Parallel()

	a := NewItem(1, "Совсем разные слова тут", nil, []int64{100}, nil, nil)
	b := NewItem(2, "Другие непохожие заголовки здесь", ts("2025-08-07T10:00:00Z"), []int64{100}, nil, nil)

	result := EvaluatePair(a, b)
	if result.CloseInTime {
		t.Fatalf("missing timestamp must fail the time predicate")
	}
	if result.PositiveCount >= 2 {
		t.Fatalf("expected pair to be rejected, got %d positives", result.PositiveCount)
	}
}

func TestBuildSingleCluster(t *testing.T) {
	t.Parallel()

	items := []Item{
		NewItem(1, "Зенит выиграл дерби у Спартака", ts("2025-08-07T10:00:00Z"), []int64{100, 7}, nil, []int64{7}),
		NewItem(2, "Зенит выиграл дерби со Спартаком", ts("2025-08-07T11:00:00Z"), []int64{100, 7}, nil, []int64{7}),
		NewItem(3, "Зенит выиграл дерби в гостях у Спартака", ts("2025-08-07T12:00:00Z"), []int64{100, 7}, nil, []int64{7}),
	}

	result := Build(items)
	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}
	members := result.Clusters[0]
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	// Newest first.
	if members[0] != 3 || members[2] != 1 {
		t.Fatalf("unexpected member order: %v", members)
	}
	if result.PairsEvaluated != 3 {
		t.Fatalf("expected 3 evaluated pairs, got %d", result.PairsEvaluated)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	t.Parallel()

	result := Build(nil)
	if len(result.Clusters) != 0 {
		t.Fatalf("expected no clusters, got %d", len(result.Clusters))
	}
	if result.PairsEvaluated != 0 {
		t.Fatalf("expected no pair evaluations, got %d", result.PairsEvaluated)
	}
}

func TestBuildNullBucketStillPairs(t *testing.T) {
	t.Parallel()

	items := []Item{
		NewItem(1, "Лыжник установил рекорд трассы", ts("2025-08-07T10:00:00Z"), []int64{55}, nil, nil),
		NewItem(2, "Лыжник установил рекорд на трассе", ts("2025-08-07T10:30:00Z"), []int64{55}, nil, nil),
	}

	result := Build(items)
	if len(result.Clusters) != 1 {
		t.Fatalf("expected null-bucket pair to cluster, got %d clusters", len(result.Clusters))
	}
}
