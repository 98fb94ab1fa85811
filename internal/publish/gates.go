package publish

import "time"

// GateConfig carries the pacing limits for one dispatch decision.
type GateConfig struct {
	Interval   time.Duration
	MaxPerHour int64
	MaxPerDay  int64
	QuietStart int
	QuietEnd   int
}

// IsQuietHour reports whether the local hour falls inside the quiet range.
// Equal bounds mean quiet hours are disabled; a range crossing midnight
// wraps.
func IsQuietHour(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// EvaluateGates applies the pacing rules to a dispatch attempt. It returns
// an empty reason when sending is allowed, otherwise the first gate that
// blocked it.
func EvaluateGates(now time.Time, localHour int, lastSentAt *time.Time, sentLastHour, sentLastDay int64, cfg GateConfig) string {
	if IsQuietHour(localHour, cfg.QuietStart, cfg.QuietEnd) {
		return "quiet"
	}
	if lastSentAt != nil && now.Sub(*lastSentAt) < cfg.Interval {
		return "interval"
	}
	if cfg.MaxPerHour > 0 && sentLastHour >= cfg.MaxPerHour {
		return "hour"
	}
	if cfg.MaxPerDay > 0 && sentLastDay >= cfg.MaxPerDay {
		return "day"
	}
	return ""
}
