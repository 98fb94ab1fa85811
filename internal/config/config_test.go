package config

import "testing"

func TestParseQuietHours(t *testing.T) {
	t.Parallel()

	start, end, err := ParseQuietHours("23-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 23 || end != 8 {
		t.Fatalf("unexpected window: %d-%d", start, end)
	}

	start, end, err = ParseQuietHours("")
	if err != nil {
		t.Fatalf("unexpected error for empty input: %v", err)
	}
	if start != 0 || end != 0 {
		t.Fatalf("expected disabled window, got %d-%d", start, end)
	}

	if _, _, err := ParseQuietHours("25-3"); err == nil {
		t.Fatalf("expected out-of-range hour to fail")
	}
	if _, _, err := ParseQuietHours("8"); err == nil {
		t.Fatalf("expected missing separator to fail")
	}
}

func TestValidateRejectsBadScheduling(t *testing.T) {
	t.Parallel()

	cfg := Config{
		DatabaseURL:        "postgres://localhost/sportwire",
		DBMinConns:         1,
		DBMaxConns:         8,
		PublishIntervalSec: 0,
		PublishMaxPerHour:  8,
		PublishMaxPerDay:   40,
		DigestDefaultLimit: 25,
		DigestThreadChunk:  5,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero interval to fail validation")
	}

	cfg.PublishIntervalSec = 300
	cfg.Timezone = "Europe/Moscow"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestAlertChatFallback(t *testing.T) {
	t.Parallel()

	cfg := Config{ChannelID: "-100123", AlertChatID: ""}
	if got := cfg.AlertChat(); got != "-100123" {
		t.Fatalf("expected channel fallback, got %q", got)
	}
	cfg.AlertChatID = "42"
	if got := cfg.AlertChat(); got != "42" {
		t.Fatalf("expected alert chat override, got %q", got)
	}
}
