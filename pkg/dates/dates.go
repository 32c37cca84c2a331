// Package dates parses the sample date column: complete ISO 8601 dates,
// ambiguous dates with X placeholders (2020-XX-XX), year-month and
// year-only forms, and fractional numeric dates. Every date resolves to a
// numeric [min, max] range so bound filters can reason about ambiguity.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// reNumeric matches fractional numeric dates like 2020.123 (negative ok).
var reNumeric = regexp.MustCompile(`^-?\d+\.\d+$`)

// Date is one parsed date value. Year/Month/Day hold the exact components
// when the corresponding part is unambiguous digits; Min/Max hold the
// numeric bounds of every calendar date the value could mean. A junk or
// empty value has neither components nor bounds.
type Date struct {
	Raw string

	Year     int
	HasYear  bool
	Month    int
	HasMonth bool
	Day      int
	HasDay   bool

	Min    float64
	HasMin bool
	Max    float64
	HasMax bool
}

// Ambiguous reports whether the date is ambiguous at the given level.
// Ambiguity is hierarchical: an unknown year implicates month and day.
func (d Date) Ambiguous(level string) bool {
	switch level {
	case "year":
		return !d.HasYear
	case "month":
		return !d.HasMonth || !d.HasYear
	default: // day, any
		return !d.HasDay || !d.HasMonth || !d.HasYear
	}
}

// Parse splits raw into components and numeric bounds. Components parse
// independently, so a partially malformed value can still carry a year.
func Parse(raw string) Date {
	d := Date{Raw: raw}
	if raw == "" {
		return d
	}

	if reNumeric.MatchString(raw) {
		f, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			d.Min, d.HasMin = f, true
			d.Max, d.HasMax = f, true
		}
		return d
	}

	parts := strings.SplitN(raw, "-", 3)
	d.Year, d.HasYear = parseComponent(parts, 0)
	d.Month, d.HasMonth = parseComponent(parts, 1)
	d.Day, d.HasDay = parseComponent(parts, 2)

	d.Min, d.HasMin = resolveMin(parts, d)
	d.Max, d.HasMax = resolveMax(parts, d)
	return d
}

func parseComponent(parts []string, i int) (int, bool) {
	if i >= len(parts) || parts[i] == "" || !allDigits(parts[i]) {
		return 0, false
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveMin resolves ambiguity downwards: X digits in the year become 0,
// a missing month or day becomes 1.
func resolveMin(parts []string, d Date) (float64, bool) {
	year, err := strconv.Atoi(strings.ReplaceAll(parts[0], "X", "0"))
	if err != nil {
		return 0, false
	}
	month, day := 1, 1
	if d.HasMonth {
		month = d.Month
	}
	if d.HasDay {
		day = d.Day
	}
	return calendarNumeric(year, month, day)
}

// resolveMax resolves ambiguity upwards: X digits in the year become 9, a
// missing month becomes 12 and a missing day the month's last day. The
// result never exceeds today.
func resolveMax(parts []string, d Date) (float64, bool) {
	year, err := strconv.Atoi(strings.ReplaceAll(parts[0], "X", "9"))
	if err != nil {
		return 0, false
	}
	month := 12
	if d.HasMonth {
		month = d.Month
	}
	day := 31
	if d.HasDay {
		day = d.Day
	} else if month >= 1 && month <= 12 {
		// Day zero of the next month is the last day of this one.
		day = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	}
	num, ok := calendarNumeric(year, month, day)
	if !ok {
		return 0, false
	}
	if today := todayNumeric(); num > today {
		num = today
	}
	return num, true
}

// calendarNumeric validates the components as a real calendar date and
// converts it; out-of-range years, months or days yield no bound.
func calendarNumeric(year, month, day int) (float64, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return 0, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 becomes Mar 2); reject it.
	if t.Day() != day || int(t.Month()) != month {
		return 0, false
	}
	return ToNumeric(t), true
}

// ToNumeric converts a calendar date to the fractional-year form used for
// all date comparisons: year + (day_of_year - 0.5) / days_in_year.
func ToNumeric(t time.Time) float64 {
	daysInYear := 365.0
	if isLeap(t.Year()) {
		daysInYear = 366.0
	}
	return float64(t.Year()) + (float64(t.YearDay())-0.5)/daysInYear
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// now is swappable so tests can pin the upper cap.
var now = time.Now

func todayNumeric() float64 {
	return ToNumeric(now().UTC())
}

// BoundMin resolves a --min-date argument to its earliest numeric value.
func BoundMin(raw string) (float64, bool) {
	d := Parse(raw)
	return d.Min, d.HasMin
}

// BoundMax resolves a --max-date argument to its latest numeric value.
func BoundMax(raw string) (float64, bool) {
	d := Parse(raw)
	return d.Max, d.HasMax
}
