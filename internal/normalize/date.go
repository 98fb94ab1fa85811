package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Genitive month names as they appear in listing date labels.
var ruMonthsGenitive = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// RuMonthName returns the genitive month name used in rendered titles.
func RuMonthName(m time.Month) string {
	names := []string{
		"января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря",
	}
	if m < time.January || m > time.December {
		return ""
	}
	return names[m-1]
}

// ToISO parses a Russian listing date label ("7 августа 2025") plus an
// optional "HH:MM" time label into "YYYY-MM-DDTHH:MM:SS" local civil time.
// A missing time label defaults to midnight.
func ToISO(dateLabel, timeLabel string) (string, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(dateLabel)))
	if len(parts) != 3 {
		return "", fmt.Errorf("date label %q: expected D MONTH YYYY", dateLabel)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return "", fmt.Errorf("date label %q: bad day", dateLabel)
	}
	month, ok := ruMonthsGenitive[parts[1]]
	if !ok {
		return "", fmt.Errorf("date label %q: unknown month %q", dateLabel, parts[1])
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1900 {
		return "", fmt.Errorf("date label %q: bad year", dateLabel)
	}

	hour, minute := 0, 0
	if trimmed := strings.TrimSpace(timeLabel); trimmed != "" {
		clock := strings.SplitN(trimmed, ":", 2)
		if len(clock) != 2 {
			return "", fmt.Errorf("time label %q: expected HH:MM", timeLabel)
		}
		hour, err = strconv.Atoi(clock[0])
		if err != nil || hour < 0 || hour > 23 {
			return "", fmt.Errorf("time label %q: bad hour", timeLabel)
		}
		minute, err = strconv.Atoi(clock[1])
		if err != nil || minute < 0 || minute > 59 {
			return "", fmt.Errorf("time label %q: bad minute", timeLabel)
		}
	}

	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00", year, int(month), day, hour, minute), nil
}

// ParseISOLocal converts a ToISO result into a time.Time in the given
// location.
func ParseISOLocal(iso string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02T15:04:05", iso, loc)
}
