package digest

import (
	"fmt"
	"strings"
	"time"

	"horse.fit/sportwire/internal/compose"
)

const overviewLimit = 10

// badge picks the emoji shown next to an overview line.
func badge(item Item) string {
	switch {
	case item.HasTournament:
		return "🏆"
	case item.TeamCount >= 2:
		return "🏟️"
	case item.HasPlayer:
		return "👤"
	default:
		return "📰"
	}
}

func periodLine(result Result, loc *time.Location) string {
	start := result.Since.In(loc)
	end := result.Until.In(loc)
	return fmt.Sprintf("%s — %s", start.Format("02.01.2006 15:04"), end.Format("02.01.2006 15:04"))
}

// Markdown renders the digest as a markdown document.
func Markdown(result Result, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", result.Title)
	fmt.Fprintf(&b, "> Период: %s\n", periodLine(result, loc))

	for _, item := range result.Items {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", item.Rank, item.Title)
		for _, article := range item.Articles {
			fmt.Fprintf(&b, "- [%s](%s)\n", article.Title, article.URL)
		}
		if extra := item.TotalArticles - len(item.Articles); extra > 0 {
			fmt.Fprintf(&b, "- … и ещё %d материалов\n", extra)
		}
	}

	return b.String()
}

// HTML renders the digest as a standalone HTML document.
func HTML(result Result, loc *time.Location) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"ru\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", compose.EscapeHTML(result.Title))
	fmt.Fprintf(&b, "<h1>%s</h1>\n", compose.EscapeHTML(result.Title))
	fmt.Fprintf(&b, "<p><em>Период: %s</em></p>\n", compose.EscapeHTML(periodLine(result, loc)))

	for _, item := range result.Items {
		fmt.Fprintf(&b, "<h2>%d. %s</h2>\n<ul>\n", item.Rank, compose.EscapeHTML(item.Title))
		for _, article := range item.Articles {
			fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n",
				compose.EscapeHTML(article.URL), compose.EscapeHTML(article.Title))
		}
		if extra := item.TotalArticles - len(item.Articles); extra > 0 {
			fmt.Fprintf(&b, "<li>… и ещё %d материалов</li>\n", extra)
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// Filename builds the export file name for a digest window.
func Filename(result Result, extension string, loc *time.Location) string {
	start := result.Since.In(loc).Format("20060102")
	if result.Period == PeriodWeekly {
		end := result.Until.In(loc).Format("20060102")
		return fmt.Sprintf("digest_%s_%s_%s.%s", result.Period, start, end, extension)
	}
	return fmt.Sprintf("digest_%s_%s.%s", result.Period, start, extension)
}

// TelegramMessages renders the digest as a message thread: the first
// message is the root, the rest are posted as replies to it. Weekly digests
// lead with a badge overview and then chunk the items; daily digests are a
// single flow. Every message respects the Telegram length limit.
func TelegramMessages(result Result, loc *time.Location, chunkSize int) []compose.Message {
	if chunkSize <= 0 {
		chunkSize = 5
	}

	header := fmt.Sprintf("<b>%s</b>\n<i>Период: %s</i>",
		compose.EscapeHTML(result.Title), compose.EscapeHTML(periodLine(result, loc)))

	texts := make([]string, 0, 4)
	if result.Period == PeriodWeekly {
		var overview strings.Builder
		overview.WriteString(header)
		overview.WriteString("\n")
		for _, item := range result.Items {
			if item.Rank > overviewLimit {
				break
			}
			fmt.Fprintf(&overview, "\n%s %d. %s", badge(item), item.Rank,
				compose.EscapeHTML(compose.TruncateRunes(item.Title, 120)))
		}
		texts = append(texts, overview.String())

		for start := 0; start < len(result.Items); start += chunkSize {
			end := start + chunkSize
			if end > len(result.Items) {
				end = len(result.Items)
			}
			texts = append(texts, renderItemBlock(result.Items[start:end]))
		}
	} else {
		var body strings.Builder
		body.WriteString(header)
		body.WriteString("\n")
		body.WriteString(renderItemBlock(result.Items))
		texts = append(texts, body.String())
	}

	messages := make([]compose.Message, 0, len(texts))
	for _, text := range texts {
		for _, chunk := range compose.SplitIntoChunks(text, 4000) {
			if strings.TrimSpace(chunk) == "" {
				continue
			}
			messages = append(messages, compose.Message{Text: chunk, Mode: "HTML"})
		}
	}
	return messages
}

func renderItemBlock(items []Item) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "\n%s <b>%d. %s</b>\n", badge(item), item.Rank, compose.EscapeHTML(item.Title))
		for _, article := range item.Articles {
			fmt.Fprintf(&b, "▪️ <a href=\"%s\">%s</a>\n",
				compose.EscapeHTML(article.URL),
				compose.EscapeHTML(compose.TruncateRunes(article.Title, 200)))
		}
		if extra := item.TotalArticles - len(item.Articles); extra > 0 {
			fmt.Fprintf(&b, "… и ещё %d материалов\n", extra)
		}
	}
	return b.String()
}
