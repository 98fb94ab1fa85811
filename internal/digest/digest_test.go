package digest

import (
	"strings"
	"testing"
	"time"

	"horse.fit/sportwire/internal/db"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestWindowDaily(t *testing.T) {
	t.Parallel()

	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2025, 8, 7, 15, 30, 0, 0, loc)

	since, until, err := Window(PeriodDaily, now, loc)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	wantSince := time.Date(2025, 8, 6, 0, 0, 0, 0, loc)
	wantUntil := time.Date(2025, 8, 7, 0, 0, 0, 0, loc)
	if !since.Equal(wantSince) || !until.Equal(wantUntil) {
		t.Fatalf("unexpected window: %s — %s", since, until)
	}
}

func TestWindowWeekly(t *testing.T) {
	t.Parallel()

	loc := mustLoc(t, "Europe/Moscow")
	// Thursday 2025-08-07.
	now := time.Date(2025, 8, 7, 15, 30, 0, 0, loc)

	since, until, err := Window(PeriodWeekly, now, loc)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	wantSince := time.Date(2025, 7, 28, 0, 0, 0, 0, loc)
	wantUntil := time.Date(2025, 8, 4, 0, 0, 0, 0, loc)
	if !since.Equal(wantSince) || !until.Equal(wantUntil) {
		t.Fatalf("unexpected window: %s — %s", since, until)
	}

	// Sunday must still anchor to the previous Monday.
	sunday := time.Date(2025, 8, 10, 12, 0, 0, 0, loc)
	since, until, err = Window(PeriodWeekly, sunday, loc)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !since.Equal(wantSince) || !until.Equal(wantUntil) {
		t.Fatalf("unexpected sunday window: %s — %s", since, until)
	}
}

func TestWindowUnknownPeriod(t *testing.T) {
	t.Parallel()

	if _, _, err := Window("monthly", time.Now(), time.UTC); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 7, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * time.Hour)
	stale := now.Add(-80 * time.Hour)

	big := db.DigestCandidate{ArticleCount: 60, LatestPublished: &fresh, HasTournament: true, HasPlayer: true}
	// Size factor caps at 10, freshness 3, tournament 2, player 1.
	if got := Score(big, now); got != 16 {
		t.Fatalf("unexpected score: %v", got)
	}

	small := db.DigestCandidate{ArticleCount: 3, LatestPublished: &stale}
	if got := Score(small, now); got != 1 {
		t.Fatalf("unexpected small score: %v", got)
	}

	twoTeams := db.DigestCandidate{ArticleCount: 3, TeamCount: 2}
	if got := Score(twoTeams, now); got != 3 {
		t.Fatalf("expected two-team bonus, got %v", got)
	}
}

func sampleResult() Result {
	url1 := "https://championat.com/football/news-1.html"
	return Result{
		Period: PeriodWeekly,
		Since:  time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC),
		Until:  time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
		Title:  "Недельный дайджест 28 июля — 3 августа 2025",
		Items: []Item{
			{
				Rank:          1,
				StoryID:       10,
				Title:         "РПЛ — главные матчи тура",
				TotalArticles: 8,
				HasTournament: true,
				Articles: []db.StoryArticleItem{
					{NewsID: 1, Title: "Зенит победил Спартак", URL: url1},
				},
			},
			{
				Rank:      2,
				StoryID:   11,
				Title:     "Трансфер недели",
				HasPlayer: true,
				Articles:  []db.StoryArticleItem{},
			},
		},
	}
}

func TestMarkdownRendering(t *testing.T) {
	t.Parallel()

	md := Markdown(sampleResult(), time.UTC)
	if !strings.HasPrefix(md, "# Недельный дайджест") {
		t.Fatalf("unexpected markdown head: %q", md)
	}
	if !strings.Contains(md, "## 1. РПЛ — главные матчи тура") {
		t.Fatalf("missing item heading: %q", md)
	}
	if !strings.Contains(md, "- [Зенит победил Спартак](https://championat.com/football/news-1.html)") {
		t.Fatalf("missing article link: %q", md)
	}
	if !strings.Contains(md, "… и ещё 7 материалов") {
		t.Fatalf("missing remainder: %q", md)
	}
}

func TestTelegramMessagesWeekly(t *testing.T) {
	t.Parallel()

	messages := TelegramMessages(sampleResult(), time.UTC, 5)
	if len(messages) < 2 {
		t.Fatalf("expected overview plus item chunk, got %d messages", len(messages))
	}
	if !strings.Contains(messages[0].Text, "🏆 1. РПЛ — главные матчи тура") {
		t.Fatalf("missing badge overview line: %q", messages[0].Text)
	}
	if !strings.Contains(messages[1].Text, "<b>1. РПЛ — главные матчи тура</b>") {
		t.Fatalf("missing item block: %q", messages[1].Text)
	}
	for _, msg := range messages {
		if msg.Mode != "HTML" {
			t.Fatalf("unexpected mode: %q", msg.Mode)
		}
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	if got := Filename(result, "md", time.UTC); got != "digest_weekly_20250728_20250804.md" {
		t.Fatalf("unexpected weekly filename: %q", got)
	}

	result.Period = PeriodDaily
	if got := Filename(result, "html", time.UTC); got != "digest_daily_20250728.html" {
		t.Fatalf("unexpected daily filename: %q", got)
	}
}
