package compose

import "strings"

// TelegramLimit is the hard message length limit of the Bot API.
const TelegramLimit = 4096

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes text for Telegram HTML parse mode.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes text for Telegram MarkdownV2 parse mode.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// TruncateRunes shortens s to at most limit runes, replacing the tail with
// an ellipsis when anything was cut.
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

// SplitIntoChunks greedily packs lines into chunks of at most limit runes.
// A single line longer than the limit is truncated to exactly the limit.
func SplitIntoChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = TelegramLimit
	}

	lines := strings.Split(text, "\n")
	chunks := make([]string, 0, 1)
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range lines {
		lineRunes := []rune(line)
		if len(lineRunes) > limit {
			line = string(lineRunes[:limit])
			lineRunes = lineRunes[:limit]
		}

		extra := len(lineRunes)
		if currentLen > 0 {
			extra++
		}
		if currentLen+extra > limit {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(line)
		currentLen += len(lineRunes)
	}
	flush()

	if len(chunks) == 0 {
		chunks = append(chunks, "")
	}
	return chunks
}
