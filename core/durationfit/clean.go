// Package durationfit turns hand-written construction log timestamps into
// pile durations and fits the log-normal duration model to them.
//
// Site logs mix full dates ("2024.5.1 10:30"), year-less entries
// ("5.1 10:30") and whole ranges in a single cell
// ("2024.5.1 10:30/5.2 8:15"). Cleaning normalizes each cell to a UTC
// time.Time; cells that cannot be read are skipped, not fatal.
package durationfit

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultYear is assumed for year-less timestamps when no cell in the
// column carries a year.
const DefaultYear = 2025

// RangeSeparators split a range cell into start and end, tried in order.
var RangeSeparators = []string{"/", " / ", " - ", "—", "－", " 至 ", " 到 "}

var (
	fullPattern  = regexp.MustCompile(`(\d{4})[./-](\d{1,2})[./-](\d{1,2})\s*(\d{1,2}):(\d{1,2})`)
	shortPattern = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})\s+(\d{1,2}):(\d{1,2})`)
	digits       = regexp.MustCompile(`\d+`)
	yearPattern  = regexp.MustCompile(`20\d{2}`)
	spaces       = regexp.MustCompile(`\s+`)
)

var punctuation = strings.NewReplacer("：", ":", "；", ":", `"`, "")

func normalize(raw string) string {
	s := punctuation.Replace(strings.TrimSpace(raw))
	return spaces.ReplaceAllString(s, " ")
}

// ParseTimestamp reads one timestamp. defaultYear is used for year-less
// values; zero disables them.
func ParseTimestamp(raw string, defaultYear int) (time.Time, bool) {
	s := normalize(raw)
	if s == "" {
		return time.Time{}, false
	}
	if m := fullPattern.FindStringSubmatch(s); m != nil {
		if t, ok := build(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), true); ok {
			return t, true
		}
	}
	if defaultYear > 0 {
		if m := shortPattern.FindStringSubmatch(s); m != nil {
			if t, ok := build(defaultYear, atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), false); ok {
				return t, true
			}
		}
	}

	nums := digits.FindAllString(raw, -1)
	switch {
	case len(nums) >= 5:
		return build(atoi(nums[0]), atoi(nums[1]), atoi(nums[2]), atoi(nums[3]), atoi(nums[4]), true)
	case len(nums) >= 4 && defaultYear > 0:
		return build(defaultYear, atoi(nums[0]), atoi(nums[1]), atoi(nums[2]), atoi(nums[3]), false)
	}
	return time.Time{}, false
}

// build validates the fields and rejects impossible dates such as Feb 30.
// Explicit years must fall in 2020-2030.
func build(year, month, day, hour, minute int, checkYear bool) (time.Time, bool) {
	if checkYear && (year < 2020 || year > 2030) {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// SplitRange reads a start/end range cell. The end inherits the start's
// year when it has none.
func SplitRange(raw string, defaultYear int) (start, end time.Time, ok bool) {
	s := normalize(raw)
	var (
		a, b  string
		found bool
	)
	for _, sep := range RangeSeparators {
		if i := strings.Index(s, sep); i >= 0 {
			a, b = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):])
			found = true
			break
		}
	}
	if !found {
		years := standaloneYears(s)
		if len(years) < 2 {
			return time.Time{}, time.Time{}, false
		}
		a, b = strings.TrimSpace(s[:years[1]]), strings.TrimSpace(s[years[1]:])
	}
	start, ok = ParseTimestamp(a, defaultYear)
	year := defaultYear
	if ok {
		year = start.Year()
	}
	end, endOK := ParseTimestamp(b, year)
	return start, end, ok && endOK
}

// standaloneYears returns the offsets of 20xx tokens not embedded in a
// longer number.
func standaloneYears(s string) []int {
	var out []int
	for _, loc := range yearPattern.FindAllStringIndex(s, -1) {
		if loc[0] > 0 && isDigit(s[loc[0]-1]) {
			continue
		}
		if loc[1] < len(s) && isDigit(s[loc[1]]) {
			continue
		}
		out = append(out, loc[0])
	}
	return out
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsRange reports whether a cell looks like a start/end range.
func IsRange(raw string) bool {
	for _, sep := range RangeSeparators {
		if strings.Contains(raw, sep) {
			return true
		}
	}
	return len(yearPattern.FindAllString(raw, -1)) >= 2
}

// FindYear returns the first 20xx year found in values, or DefaultYear.
func FindYear(values []string) int {
	for _, v := range values {
		if m := yearPattern.FindString(v); m != "" {
			return atoi(m)
		}
	}
	return DefaultYear
}

// HoursBetween returns end-start in hours rounded to two decimals.
func HoursBetween(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours()*100) / 100
}
