package app

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidateArticleFile(t *testing.T) {
	t.Parallel()

	schema, err := compileArticleSchema()
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	valid := writeTempJSON(t, "valid.json", `{
		"news_id": 42,
		"url": "https://www.championat.com/football/news-1.html",
		"title": "Зенит обыграл Спартак",
		"lang": "ru",
		"tags": [{"name": "Футбол", "type": "sport"}]
	}`)
	if err := validateArticleFile(schema, valid); err != nil {
		t.Fatalf("expected valid document, got: %v", err)
	}

	missingTitle := writeTempJSON(t, "missing_title.json", `{
		"url": "https://www.championat.com/football/news-1.html"
	}`)
	if err := validateArticleFile(schema, missingTitle); err == nil {
		t.Fatalf("expected error for missing title")
	}

	badTagType := writeTempJSON(t, "bad_tag.json", `{
		"url": "https://www.championat.com/football/news-1.html",
		"title": "t",
		"tags": [{"name": "x", "type": "club"}]
	}`)
	if err := validateArticleFile(schema, badTagType); err == nil {
		t.Fatalf("expected error for unsupported tag type")
	}

	notJSON := writeTempJSON(t, "broken.json", `{"url":`)
	if err := validateArticleFile(schema, notJSON); err == nil {
		t.Fatalf("expected error for broken JSON")
	}
}
