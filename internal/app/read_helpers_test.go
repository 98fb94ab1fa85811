package app

import (
	"testing"
	"time"
)

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("default: got %q, err %v", got, err)
	}
	if got, err := parseOutputFormat("JSON", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("case fold: got %q, err %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestParseUTCDateRange(t *testing.T) {
	t.Parallel()

	from, to, err := parseUTCDateRange("2025-08-01", "2025-08-03")
	if err != nil {
		t.Fatalf("parseUTCDateRange: %v", err)
	}
	if !from.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from: %v", from)
	}
	// The end bound is exclusive and covers the whole last day.
	if !to.Equal(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to: %v", to)
	}

	if _, _, err := parseUTCDateRange("2025-08-03", "2025-08-01"); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, _, err := parseUTCDateRange("03.08.2025", "2025-08-04"); err == nil {
		t.Fatalf("expected error for bad date format")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 20); got != "short" {
		t.Fatalf("unexpected trim result: %q", got)
	}
	if got := truncateForTable("Зенит обыграл Спартак в дерби", 10); got != "Зенит о..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
