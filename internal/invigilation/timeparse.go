package invigilation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision. The zero value is an invalid
// (missing) clock, which never takes part in overlap checks.
type Clock struct {
	minutes int
	valid   bool
}

// NewClock builds a valid clock, clamping out of range input into the day.
func NewClock(hour, minute int) Clock {
	total := hour*60 + minute
	if total < 0 {
		total = 0
	}
	if total >= 24*60 {
		total = 24*60 - 1
	}
	return Clock{minutes: total, valid: true}
}

// Valid reports whether the clock carries a parsed time.
func (c Clock) Valid() bool { return c.valid }

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.minutes }

// Before orders valid clocks ahead of invalid ones.
func (c Clock) Before(other Clock) bool {
	switch {
	case c.valid && other.valid:
		return c.minutes < other.minutes
	case c.valid:
		return true
	default:
		return false
	}
}

// String renders HH:MM, or an empty string for a missing clock.
func (c Clock) String() string {
	if !c.valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.minutes/60, c.minutes%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unparsable text yields a
// missing clock rather than an error.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, _ := ParseClock(string(text))
	*c = parsed
	return nil
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3PM",
	"3 PM",
	"15.04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseClock accepts the time renderings found in hand-maintained timetables:
// HH:MM, H:MM, HH:MM:SS, HH.MM, 12-hour clocks with AM/PM, timestamps and
// spreadsheet day fractions (0.375 is 09:00). Spreadsheet datetime serials
// (45672.375) contribute their fractional part.
func ParseClock(raw string) (Clock, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" || value == "NAN" || value == "NONE" {
		return Clock{}, false
	}
	if number, err := strconv.ParseFloat(value, 64); err == nil {
		if fraction, ok := dayFraction(number); ok {
			minutes := int(math.Round(fraction * 24 * 60))
			return NewClock(minutes/60, minutes%60), true
		}
	}
	for _, layout := range clockLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return NewClock(parsed.Hour(), parsed.Minute()), true
		}
	}
	return Clock{}, false
}

// dayFraction extracts the time of day from a bare fraction or a datetime
// serial inside the accepted serial window.
func dayFraction(number float64) (float64, bool) {
	switch {
	case number >= 0 && number < 1:
		return number, true
	case number >= minSerialDay && number < maxSerialDay:
		return number - math.Floor(number), true
	default:
		return 0, false
	}
}

var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2/1/2006",
	"2-1-2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var embeddedDatePattern = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)

// spreadsheet serials outside this window are treated as plain numbers.
const (
	minSerialDay = 20000
	maxSerialDay = 80000
)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate resolves a civil date from the formats seen in exam timetables:
// ISO dates, slash separated dates (year first or day first), timestamps,
// spreadsheet serial numbers and free text that embeds YYYY/M/D, such as a
// weekday name followed by the date. The result is UTC midnight.
func ParseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return civilDate(parsed), true
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= minSerialDay && serial < maxSerialDay {
			return serialEpoch.AddDate(0, 0, int(serial)), true
		}
		return time.Time{}, false
	}
	if match := embeddedDatePattern.FindStringSubmatch(normalizeDigits(value)); match != nil {
		year, _ := strconv.Atoi(match[1])
		month, _ := strconv.Atoi(match[2])
		day, _ := strconv.Atoi(match[3])
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if candidate.Year() == year && int(candidate.Month()) == month && candidate.Day() == day {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// DateKey is the canonical per-day key used throughout a run.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Any missing bound means no conflict can be established.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	if !aStart.valid || !aEnd.valid || !bStart.valid || !bEnd.valid {
		return false
	}
	return aStart.minutes < bEnd.minutes && bStart.minutes < aEnd.minutes
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeDigits maps Arabic-Indic and Eastern Arabic-Indic digits to ASCII.
func normalizeDigits(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, value)
}
