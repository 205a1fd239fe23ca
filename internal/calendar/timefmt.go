package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	meridiemPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// FormatTime renders a stored timestamp as "h:mm AM/PM".
//
// Accepted inputs are ISO-8601 date-times (rendered in UTC, zone-less values
// are taken as UTC), bare "HH:mm" or "HH:mm:ss" clock times, and labels already
// in 12-hour form. Anything else is returned unchanged.
func FormatTime(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := meridiemPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 || minute > 59 {
			return raw
		}
		return fmt.Sprintf("%d:%02d %s", h, minute, strings.ToUpper(m[3]))
	}

	if strings.Contains(s, "T") {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return clockLabel(t.Hour(), t.Minute())
			}
		}
		return raw
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if h > 23 || minute > 59 {
			return raw
		}
		if m[3] != "" {
			if sec, _ := strconv.Atoi(m[3]); sec > 59 {
				return raw
			}
		}
		return clockLabel(h, minute)
	}

	return raw
}

func clockLabel(hour, minute int) string {
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// MinutesSinceMidnight parses a "h:mm AM/PM" label. 12 AM is midnight.
func MinutesSinceMidnight(label string) (int, bool) {
	m := meridiemPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if h < 1 || h > 12 || minute > 59 {
		return 0, false
	}
	h %= 12
	if strings.EqualFold(m[3], "PM") {
		h += 12
	}
	return h*60 + minute, true
}
