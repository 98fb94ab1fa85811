package publish

import (
	"testing"
	"time"
)

func TestIsQuietHour(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name             string
		hour, start, end int
		want             bool
	}{
		{"disabled when equal", 3, 0, 0, false},
		{"inside simple range", 2, 1, 7, true},
		{"start inclusive", 1, 1, 7, true},
		{"end exclusive", 7, 1, 7, false},
		{"outside simple range", 12, 1, 7, false},
		{"wrap before midnight", 23, 23, 7, true},
		{"wrap after midnight", 3, 23, 7, true},
		{"wrap boundary end", 7, 23, 7, false},
		{"wrap daytime", 12, 23, 7, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsQuietHour(tc.hour, tc.start, tc.end); got != tc.want {
				t.Fatalf("IsQuietHour(%d, %d, %d) = %v, want %v", tc.hour, tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestEvaluateGates(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 7, 12, 0, 0, 0, time.UTC)
	cfg := GateConfig{
		Interval:   5 * time.Minute,
		MaxPerHour: 8,
		MaxPerDay:  40,
		QuietStart: 1,
		QuietEnd:   7,
	}

	if got := EvaluateGates(now, 3, nil, 0, 0, cfg); got != "quiet" {
		t.Fatalf("expected quiet gate, got %q", got)
	}

	recent := now.Add(-2 * time.Minute)
	if got := EvaluateGates(now, 12, &recent, 0, 0, cfg); got != "interval" {
		t.Fatalf("expected interval gate, got %q", got)
	}

	old := now.Add(-time.Hour)
	if got := EvaluateGates(now, 12, &old, 8, 10, cfg); got != "hour" {
		t.Fatalf("expected hour gate, got %q", got)
	}
	if got := EvaluateGates(now, 12, &old, 2, 40, cfg); got != "day" {
		t.Fatalf("expected day gate, got %q", got)
	}
	if got := EvaluateGates(now, 12, &old, 2, 10, cfg); got != "" {
		t.Fatalf("expected dispatch allowed, got %q", got)
	}
	if got := EvaluateGates(now, 12, nil, 0, 0, cfg); got != "" {
		t.Fatalf("expected first ever send allowed, got %q", got)
	}
}
