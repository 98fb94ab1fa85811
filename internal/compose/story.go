package compose

import (
	"fmt"
	"strings"
)

const (
	// MaxStoryItems is the most member articles a story post shows.
	MaxStoryItems = 5
	// MinStoryItems is the floor the near-duplicate filter may not cut below.
	MinStoryItems = 3
	// UpdateShortLimit is the largest update rendered as a short append.
	UpdateShortLimit = 2
	// UpdateFullLimit caps the items of a full update re-render.
	UpdateFullLimit = 5

	maxItemTitleRunes = 256
	maxTagNameRunes   = 48
	maxItemTags       = 4
	maxTagBlockRunes  = 1024

	sourceURL  = "https://www.championat.com"
	sourceName = "Championat"
)

// Telegram parse modes the renderers produce.
const (
	ModeHTML     = "HTML"
	ModeMarkdown = "MarkdownV2"
)

// NormalizeMode maps a CLI mode value to a Telegram parse mode. Empty
// input defaults to HTML.
func NormalizeMode(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "html":
		return ModeHTML, nil
	case "markdown", "markdownv2":
		return ModeMarkdown, nil
	default:
		return "", fmt.Errorf("unknown mode %q, want html or markdown", raw)
	}
}

var typeIcons = map[string]string{
	"sport":      "🏅",
	"tournament": "🏆",
	"team":       "🏟️",
	"player":     "👤",
}

var indexEmoji = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

// Icon returns the emoji for a tag type, or the generic tag icon.
func Icon(tagType string) string {
	if icon, ok := typeIcons[tagType]; ok {
		return icon
	}
	return "🏷️"
}

// IndexEmoji returns the numbered emoji for a 1-based position.
func IndexEmoji(position int) string {
	if position >= 1 && position <= len(indexEmoji) {
		return indexEmoji[position-1]
	}
	return "▪️"
}

// TagView is one typed tag rendered on an item line.
type TagView struct {
	Name string
	Type string
}

// ItemView is one member article of a story post.
type ItemView struct {
	NewsID int64
	Title  string
	URL    string
	Tags   []TagView
}

// StoryView is the input to the story renderer.
type StoryView struct {
	Title string
	Items []ItemView
	// TotalArticles is the full member count before visibility capping.
	TotalArticles int
}

// Message is a rendered Telegram message.
type Message struct {
	Text string
	Mode string
}

// SelectStoryItems applies the visibility rules: at most MaxStoryItems
// distinct items; when the duplicate filter cut the list below
// MinStoryItems, hidden items are re-admitted in order until the floor is
// reached.
func SelectStoryItems(visible, hidden []ItemView) []ItemView {
	selected := make([]ItemView, 0, MaxStoryItems)
	for _, item := range visible {
		if len(selected) == MaxStoryItems {
			return selected
		}
		selected = append(selected, item)
	}
	for _, item := range hidden {
		if len(selected) >= MinStoryItems {
			break
		}
		selected = append(selected, item)
	}
	return selected
}

// Story renders a story post in the given parse mode.
func Story(view StoryView, mode string) Message {
	var b strings.Builder

	b.WriteString("🏆 ")
	b.WriteString(bold(view.Title, mode))
	b.WriteString("\n")

	tagLines := make([]string, len(view.Items))
	tagBlockLen := 0
	for i, item := range view.Items {
		line := renderTagLine(item.Tags, mode)
		tagLines[i] = line
		tagBlockLen += len([]rune(line))
	}
	// When the combined tag block would bloat the post, drop every tag line
	// rather than cutting them unevenly.
	showTags := tagBlockLen <= maxTagBlockRunes

	for i, item := range view.Items {
		b.WriteString("\n")
		b.WriteString(IndexEmoji(i + 1))
		b.WriteString(" ")
		b.WriteString(itemLink(item, mode))
		b.WriteString("\n")
		if showTags && tagLines[i] != "" {
			b.WriteString(tagLines[i])
			b.WriteString("\n")
		}
	}

	if remainder := view.TotalArticles - len(view.Items); remainder > 0 {
		b.WriteString("\n")
		b.WriteString(escapeText(fmt.Sprintf("… и ещё %d материалов в этой истории.", remainder), mode))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footer(mode))

	return Message{Text: b.String(), Mode: parseMode(mode)}
}

// Article renders a standalone article post in the given parse mode.
func Article(item ItemView, mode string) Message {
	var b strings.Builder
	b.WriteString("📰 ")
	b.WriteString(itemLink(item, mode))
	if line := renderTagLine(item.Tags, mode); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n\n")
	b.WriteString(footer(mode))
	return Message{Text: b.String(), Mode: parseMode(mode)}
}

// StoryUpdate renders the text for a post-publish story update. Small
// updates become a short appended list; larger ones re-render the latest
// items in full.
func StoryUpdate(view StoryView, newItems []ItemView, mode string) Message {
	if len(newItems) > 0 && len(newItems) <= UpdateShortLimit {
		var b strings.Builder
		b.WriteString("➕ Обновление:")
		for _, item := range newItems {
			b.WriteString("\n▪️ ")
			b.WriteString(itemLink(item, mode))
		}
		return Message{Text: b.String(), Mode: parseMode(mode)}
	}

	capped := view
	if len(capped.Items) > UpdateFullLimit {
		capped.Items = capped.Items[:UpdateFullLimit]
	}
	return Story(capped, mode)
}

// parseMode folds any accepted mode spelling into the parse_mode value
// sent to the Bot API.
func parseMode(mode string) string {
	if normalized, err := NormalizeMode(mode); err == nil {
		return normalized
	}
	return ModeHTML
}

func escapeText(s, mode string) string {
	if parseMode(mode) == ModeMarkdown {
		return EscapeMarkdownV2(s)
	}
	return EscapeHTML(s)
}

func bold(s, mode string) string {
	if parseMode(mode) == ModeMarkdown {
		return "*" + EscapeMarkdownV2(s) + "*"
	}
	return "<b>" + EscapeHTML(s) + "</b>"
}

func footer(mode string) string {
	if parseMode(mode) == ModeMarkdown {
		return "Источник: [" + sourceName + "](" + escapeMarkdownURL(sourceURL) + ")"
	}
	return `Источник: <a href="` + sourceURL + `">` + sourceName + `</a>`
}

func itemLink(item ItemView, mode string) string {
	title := TruncateRunes(item.Title, maxItemTitleRunes)
	if item.URL == "" {
		return escapeText(title, mode)
	}
	if parseMode(mode) == ModeMarkdown {
		return "[" + EscapeMarkdownV2(title) + "](" + escapeMarkdownURL(item.URL) + ")"
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, EscapeHTML(item.URL), EscapeHTML(title))
}

// escapeMarkdownURL escapes the characters MarkdownV2 treats specially
// inside the (...) of an inline link.
func escapeMarkdownURL(u string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `)`, `\)`)
	return replacer.Replace(u)
}

func renderTagLine(tagList []TagView, mode string) string {
	if len(tagList) == 0 {
		return ""
	}
	parts := make([]string, 0, maxItemTags)
	for _, tag := range tagList {
		if len(parts) == maxItemTags {
			break
		}
		if tag.Name == "" {
			continue
		}
		parts = append(parts, Icon(tag.Type)+" "+escapeText(TruncateRunes(tag.Name, maxTagNameRunes), mode))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " · ")
}
