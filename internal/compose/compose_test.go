package compose

import (
	"strings"
	"testing"
)

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	if got := EscapeHTML(`Матч "Зенит" <ЦСКА> & co`); got != `Матч "Зенит" &lt;ЦСКА&gt; &amp; co` {
		t.Fatalf("unexpected escape: %q", got)
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	if got := EscapeMarkdownV2("a_b*c.d!e"); got != `a\_b\*c\.d\!e` {
		t.Fatalf("unexpected escape: %q", got)
	}
}

func TestSplitIntoChunksPacksLines(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{"один", "два", "три"}, "\n")
	chunks := SplitIntoChunks(text, 9)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "один\nдва" {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
	if chunks[1] != "три" {
		t.Fatalf("unexpected second chunk: %q", chunks[1])
	}
}

func TestSplitIntoChunksTruncatesOversizeLine(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ж", TelegramLimit+100)
	chunks := SplitIntoChunks(long, TelegramLimit)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if runeLen := len([]rune(chunks[0])); runeLen != TelegramLimit {
		t.Fatalf("expected exactly %d runes, got %d", TelegramLimit, runeLen)
	}
}

func TestSelectStoryItems(t *testing.T) {
	t.Parallel()

	mk := func(n int) []ItemView {
		items := make([]ItemView, n)
		for i := range items {
			items[i] = ItemView{Title: "t", URL: "u"}
		}
		return items
	}

	if got := SelectStoryItems(mk(7), nil); len(got) != MaxStoryItems {
		t.Fatalf("expected cap at %d, got %d", MaxStoryItems, len(got))
	}
	// Duplicate filter cut too deep, hidden items fill back to the floor.
	if got := SelectStoryItems(mk(1), mk(4)); len(got) != MinStoryItems {
		t.Fatalf("expected floor of %d, got %d", MinStoryItems, len(got))
	}
	if got := SelectStoryItems(mk(4), mk(3)); len(got) != 4 {
		t.Fatalf("expected no re-admission above the floor, got %d", len(got))
	}
}

func TestStoryRendering(t *testing.T) {
	t.Parallel()

	view := StoryView{
		Title: "РПЛ — Зенит и Спартак",
		Items: []ItemView{
			{
				Title: "Зенит победил Спартак",
				URL:   "https://championat.com/football/news-1.html",
				Tags:  []TagView{{Name: "РПЛ", Type: "tournament"}, {Name: "Зенит", Type: "team"}},
			},
			{
				Title: "Подробности матча",
				URL:   "https://championat.com/football/news-2.html",
			},
		},
		TotalArticles: 7,
	}

	msg := Story(view, ModeHTML)
	if msg.Mode != ModeHTML {
		t.Fatalf("unexpected mode: %q", msg.Mode)
	}
	if !strings.HasPrefix(msg.Text, "🏆 <b>РПЛ — Зенит и Спартак</b>") {
		t.Fatalf("unexpected header: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, `1️⃣ <a href="https://championat.com/football/news-1.html">Зенит победил Спартак</a>`) {
		t.Fatalf("missing first item line: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "🏆 РПЛ · 🏟️ Зенит") {
		t.Fatalf("missing tag line: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "… и ещё 5 материалов в этой истории.") {
		t.Fatalf("missing remainder line: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, footer(ModeHTML)) {
		t.Fatalf("missing source footer: %q", msg.Text)
	}
}

func TestStoryRenderingMarkdown(t *testing.T) {
	t.Parallel()

	view := StoryView{
		Title: "Финал: интрига!",
		Items: []ItemView{
			{
				Title: "Матч (обзор)",
				URL:   "https://championat.com/football/news-1.html",
				Tags:  []TagView{{Name: "РПЛ", Type: "tournament"}},
			},
		},
		TotalArticles: 1,
	}

	msg := Story(view, ModeMarkdown)
	if msg.Mode != ModeMarkdown {
		t.Fatalf("unexpected mode: %q", msg.Mode)
	}
	if !strings.HasPrefix(msg.Text, `🏆 *Финал: интрига\!*`) {
		t.Fatalf("unexpected header: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, `1️⃣ [Матч \(обзор\)](https://championat.com/football/news-1.html)`) {
		t.Fatalf("missing markdown item link: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "Источник: [Championat](https://www.championat.com)") {
		t.Fatalf("missing markdown footer: %q", msg.Text)
	}
	if strings.Contains(msg.Text, "<b>") || strings.Contains(msg.Text, "<a href") {
		t.Fatalf("html markup leaked into markdown render: %q", msg.Text)
	}
}

func TestNormalizeMode(t *testing.T) {
	t.Parallel()

	if got, err := NormalizeMode(""); err != nil || got != ModeHTML {
		t.Fatalf("default: got %q, err %v", got, err)
	}
	if got, err := NormalizeMode("Markdown"); err != nil || got != ModeMarkdown {
		t.Fatalf("markdown: got %q, err %v", got, err)
	}
	if _, err := NormalizeMode("plain"); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestStoryUpdateShortAndFull(t *testing.T) {
	t.Parallel()

	view := StoryView{Title: "История", Items: []ItemView{{Title: "a", URL: "u"}}}

	short := StoryUpdate(view, []ItemView{{Title: "Новость", URL: "https://championat.com/n.html"}}, ModeHTML)
	if !strings.HasPrefix(short.Text, "➕ Обновление:") {
		t.Fatalf("expected short append, got %q", short.Text)
	}

	many := make([]ItemView, UpdateShortLimit+1)
	for i := range many {
		many[i] = ItemView{Title: "n", URL: "u"}
	}
	full := StoryUpdate(view, many, ModeHTML)
	if !strings.HasPrefix(full.Text, "🏆 <b>") {
		t.Fatalf("expected full re-render, got %q", full.Text)
	}
}

func TestIconFallback(t *testing.T) {
	t.Parallel()

	if Icon("tournament") != "🏆" {
		t.Fatalf("unexpected tournament icon")
	}
	if Icon("unknown") != "🏷️" {
		t.Fatalf("unexpected fallback icon")
	}
}
