package monitor

import "testing"

func f(v float64) *float64 { return &v }

func TestEvaluateAlertsNoThresholds(t *testing.T) {
	t.Parallel()

	samples := []Sample{{Metric: "news_1h", Value: 0}, {Metric: "queue_depth", Value: 999}}
	if alerts := EvaluateAlerts(samples, Thresholds{}); len(alerts) != 0 {
		t.Fatalf("expected no alerts without thresholds, got %v", alerts)
	}
}

func TestEvaluateAlertsMinViolation(t *testing.T) {
	t.Parallel()

	samples := []Sample{
		{Metric: "news_1h", Value: 1},
		{Metric: "sent_24h", Value: 2},
	}
	alerts := EvaluateAlerts(samples, Thresholds{NewsMin1h: f(5), SentMin24: f(3)})
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %v", alerts)
	}
	if alerts[0] != "news_1h=1 below minimum 5" {
		t.Fatalf("unexpected alert text: %q", alerts[0])
	}
}

func TestEvaluateAlertsMaxViolation(t *testing.T) {
	t.Parallel()

	samples := []Sample{{Metric: "queue_depth", Value: 120}}
	alerts := EvaluateAlerts(samples, Thresholds{QueueMax: f(100)})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %v", alerts)
	}
	if alerts[0] != "queue_depth=120 above maximum 100" {
		t.Fatalf("unexpected alert text: %q", alerts[0])
	}
}

func TestEvaluateAlertsWithinBounds(t *testing.T) {
	t.Parallel()

	samples := []Sample{
		{Metric: "news_1h", Value: 10},
		{Metric: "queue_depth", Value: 5},
		{Metric: "sent_24h", Value: 20},
	}
	alerts := EvaluateAlerts(samples, Thresholds{NewsMin1h: f(5), QueueMax: f(100), SentMin24: f(3)})
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", alerts)
	}
}

func TestMetricDefinitionsComplete(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		"news_1h": false, "news_24h": false, "stories_24h": false,
		"queue_depth": false, "sent_24h": false, "errors_24h": false,
		"rate_limit_hits_1h": false, "edits_24h": false, "digests_7d": false,
	}
	for _, def := range metricDefinitions {
		if _, ok := want[def.Name]; !ok {
			t.Fatalf("unexpected metric %q", def.Name)
		}
		want[def.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("metric %q missing", name)
		}
	}
}
