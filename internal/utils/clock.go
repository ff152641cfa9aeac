package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SecondsPerMinute = 60
	SecondsPerHour   = 3600

	// MaxClockHours bounds parsed clock values. The grid axis runs past
	// midnight ("25:30" is 01:30 the next morning), so hours up to 47 are accepted.
	MaxClockHours = 47
)

// ParseClock parses a time on the grid axis and returns seconds from the
// axis origin. Accepted forms are "HH:MM", "HH:MM:SS" and a plain number of
// seconds.
func ParseClock(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}

	if !strings.Contains(s, ":") {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q (expected HH:MM or seconds)", s)
		}
		if secs < 0 {
			return 0, fmt.Errorf("invalid time %q: must not be negative", s)
		}
		return secs, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", s)
	}

	var fields [3]int64
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q (expected HH:MM)", s)
		}
		fields[i] = n
	}

	hours, minutes, seconds := fields[0], fields[1], fields[2]
	if hours > MaxClockHours {
		return 0, fmt.Errorf("invalid time %q: hour must be at most %d", s, MaxClockHours)
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid time %q: minutes and seconds must be below 60", s)
	}

	return hours*SecondsPerHour + minutes*SecondsPerMinute + seconds, nil
}

// FormatClock renders seconds as "HH:MM", adding ":SS" only when needed.
// Hours are not wrapped at 24.
func FormatClock(secs int64) string {
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	h := secs / SecondsPerHour
	m := (secs % SecondsPerHour) / SecondsPerMinute
	sec := secs % SecondsPerMinute
	if sec != 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, sec)
	}
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

// FormatDuration renders a span of seconds as e.g. "1h30m"
func FormatDuration(secs int64) string {
	h := secs / SecondsPerHour
	m := (secs % SecondsPerHour) / SecondsPerMinute
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
