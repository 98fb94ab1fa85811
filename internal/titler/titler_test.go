package titler

import (
	"strings"
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

func TestRefineEntityWithTopic(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{
			ID:          1,
			Title:       "Зенит победил Спартак со счётом 2:1",
			Published:   ts("2025-08-07T10:00:00Z"),
			Tournaments: []string{"РПЛ"},
		},
		{
			ID:          2,
			Title:       "Зенит победил Спартак в дерби",
			Published:   ts("2025-08-07T12:00:00Z"),
			Tournaments: []string{"РПЛ"},
		},
		{
			ID:          3,
			Title:       "Зенит победил Спартак дома",
			Published:   ts("2025-08-07T13:00:00Z"),
			Tournaments: []string{"РПЛ"},
		},
	}

	title := Refine(articles)
	if !strings.HasPrefix(title, "РПЛ — ") {
		t.Fatalf("expected tournament-led title, got %q", title)
	}
	if !strings.Contains(title, "Зенит") {
		t.Fatalf("expected topic tokens in title, got %q", title)
	}
	if !strings.HasSuffix(title, " на 7 августа") {
		t.Fatalf("expected single-date suffix, got %q", title)
	}
}

func TestRefineMixedDatesOmitSuffix(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{ID: 1, Title: "Зенит победил Спартак", Published: ts("2025-08-07T23:00:00Z"), Teams: []string{"Зенит"}},
		{ID: 2, Title: "Зенит победил Спартак", Published: ts("2025-08-08T01:00:00Z"), Teams: []string{"Зенит"}},
	}

	title := Refine(articles)
	if strings.Contains(title, " на ") {
		t.Fatalf("expected no date suffix for mixed dates, got %q", title)
	}
}

func TestRefineNoCommonTokensFallsBackToEntity(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{ID: 1, Title: "Трансфер завершён", Teams: []string{"ЦСКА"}},
		{ID: 2, Title: "Контракт подписан официально", Teams: []string{"ЦСКА"}},
		{ID: 3, Title: "Новичок прибыл", Teams: []string{"ЦСКА"}},
	}

	if got := Refine(articles); got != "Сводка: ЦСКА" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestRefineEmptyInput(t *testing.T) {
	t.Parallel()

	if got := Refine(nil); got != "Сводка дня" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestRefineTruncatesLongTitles(t *testing.T) {
	t.Parallel()

	words := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		words = append(words, "слово"+strings.Repeat("о", i+1))
	}
	long := strings.Join(words, " ")
	articles := []Article{
		{ID: 1, Title: long},
		{ID: 2, Title: long},
	}

	title := Refine(articles)
	if runeLen := len([]rune(title)); runeLen > 140 {
		t.Fatalf("title exceeds 140 runes: %d", runeLen)
	}
	if !strings.HasSuffix(title, "…") {
		t.Fatalf("expected ellipsis, got %q", title)
	}
}
