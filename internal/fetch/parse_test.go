package fetch

import (
	"testing"
)

const listingHTML = `
<html><body>
<div class="news-list">
	<div class="news-list__date">7 августа 2025</div>
	<div class="news-item">
		<span class="news-item__time">12:30</span>
		<a class="news-item__title" href="/football/news-5001.html">Зенит победил Спартак</a>
	</div>
	<div class="news-item">
		<span class="news-item__time">11:05</span>
		<a class="news-item__title" href="/hockey/news-5000.html">ЦСКА вышел в финал</a>
	</div>
	<div class="news-list__date">6 августа 2025</div>
	<div class="news-item">
		<span class="news-item__time">23:58</span>
		<a class="news-item__title" href="/tennis/news-4999.html">Медведев выиграл турнир</a>
	</div>
</div>
</body></html>`

func TestParseListing(t *testing.T) {
	t.Parallel()

	groups, err := ParseListing([]byte(listingHTML))
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	first := groups[0]
	if first.DateLabel != "7 августа 2025" {
		t.Fatalf("unexpected date label: %q", first.DateLabel)
	}
	if len(first.Cards) != 2 {
		t.Fatalf("expected 2 cards in first group, got %d", len(first.Cards))
	}
	if first.Cards[0].URL != "/football/news-5001.html" {
		t.Fatalf("unexpected card url: %q", first.Cards[0].URL)
	}
	if first.Cards[0].Title != "Зенит победил Спартак" {
		t.Fatalf("unexpected card title: %q", first.Cards[0].Title)
	}
	if first.Cards[0].TimeLabel != "12:30" {
		t.Fatalf("unexpected card time: %q", first.Cards[0].TimeLabel)
	}

	second := groups[1]
	if second.DateLabel != "6 августа 2025" {
		t.Fatalf("unexpected second date label: %q", second.DateLabel)
	}
	if len(second.Cards) != 1 {
		t.Fatalf("expected 1 card in second group, got %d", len(second.Cards))
	}
}

const articleHTML = `
<html><head>
<link rel="canonical" href="https://www.championat.com/football/news-5001.html"/>
<meta property="og:title" content="fallback title"/>
<meta property="og:image" content="https://img.championat.com/5001.jpg"/>
</head><body>
<h1 class="article-head__title">Зенит победил Спартак со счётом 2:1</h1>
<div class="article-content">
	<p>Петербургский клуб выиграл   дерби.</p>
	<p>Гол забил нападающий Артём Дзюба.</p>
	<p></p>
	<iframe src="https://video.championat.com/embed/5001"></iframe>
</div>
<div class="article-tags">
	<a href="/football/tournament/rpl.html">РПЛ</a>
	<a href="/football/teams/zenit.html">Зенит</a>
</div>
</body></html>`

func TestParseArticle(t *testing.T) {
	t.Parallel()

	article, err := ParseArticle([]byte(articleHTML), "https://www.championat.com/football/news-5001.html?utm_source=feed")
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}

	if article.Title != "Зенит победил Спартак со счётом 2:1" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
	if article.CanonicalURL != "https://www.championat.com/football/news-5001.html" {
		t.Fatalf("unexpected canonical url: %q", article.CanonicalURL)
	}
	if article.Body != "Петербургский клуб выиграл дерби.\n\nГол забил нападающий Артём Дзюба." {
		t.Fatalf("unexpected body: %q", article.Body)
	}
	if len(article.Tags) != 2 || article.Tags[0].Name != "РПЛ" || article.Tags[1].URL != "/football/teams/zenit.html" {
		t.Fatalf("unexpected tags: %+v", article.Tags)
	}
	if len(article.ImageURLs) != 1 || article.ImageURLs[0] != "https://img.championat.com/5001.jpg" {
		t.Fatalf("unexpected images: %v", article.ImageURLs)
	}
	if len(article.VideoURLs) != 1 || article.VideoURLs[0] != "https://video.championat.com/embed/5001" {
		t.Fatalf("unexpected videos: %v", article.VideoURLs)
	}
}

func TestParseArticleMissingTitle(t *testing.T) {
	t.Parallel()

	if _, err := ParseArticle([]byte("<html><body></body></html>"), "https://example.com"); err == nil {
		t.Fatalf("expected error for article without title")
	}
}
