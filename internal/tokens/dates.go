package tokens

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Order says how an all-numeric date is read.
type Order int

const (
	MonthFirst Order = iota
	DayFirst
)

// YearHint supplies the year for dates printed without one. The zero value
// means the year is unknown.
type YearHint struct {
	Year     int
	EndMonth time.Month
	Order    Order
}

// Known reports whether the hint carries a statement year.
func (h YearHint) Known() bool {
	return h.Year > 0
}

// Now is the clock used when a date has no year and no hint is known.
var Now = time.Now

var (
	layoutsWithYear = map[Order][]string{
		MonthFirst: {"1/2/2006", "1/2/06", "1-2-2006", "1-2-06"},
		DayFirst:   {"2/1/2006", "2/1/06", "2-1-2006", "2-1-06"},
	}
	layoutsNoYear = map[Order][]string{
		MonthFirst: {"1/2", "1-2"},
		DayFirst:   {"2/1", "2-1"},
	}
	textLayoutsWithYear = []string{
		"2006-1-2", "2 Jan 2006", "2 January 2006", "2 Jan 06", "2 January 06",
		"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "January 2 2006",
	}
	textLayoutsNoYear = []string{"2 Jan", "2 January", "Jan 2", "January 2"}

	septPattern = regexp.MustCompile(`(?i)\bsept\b`)
)

// ParseDate parses a printed date. Dates without a year take it from hint;
// the second return value is true when the year had to be guessed because
// the hint was empty.
func ParseDate(s string, hint YearHint) (time.Time, bool, error) {
	clean := normalizeDate(s)
	if clean == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}

	layouts := append(append([]string{}, layoutsWithYear[hint.Order]...), textLayoutsWithYear...)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return t, false, nil
		}
	}

	layouts = append(append([]string{}, layoutsNoYear[hint.Order]...), textLayoutsNoYear...)
	for _, layout := range layouts {
		t, err := time.Parse(layout, clean)
		if err != nil {
			continue
		}
		year, inferred := resolveYear(t.Month(), hint)
		d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Day() != t.Day() {
			// Feb 29 outside a leap year
			return time.Time{}, false, fmt.Errorf("invalid date %q for year %d", s, year)
		}
		return d, inferred, nil
	}

	return time.Time{}, false, fmt.Errorf("unrecognised date %q", s)
}

// resolveYear picks the year for a month printed without one. A statement
// ending in January lists December rows from the previous year.
func resolveYear(month time.Month, hint YearHint) (int, bool) {
	if !hint.Known() {
		return Now().Year(), true
	}
	if hint.EndMonth != 0 && month > hint.EndMonth {
		return hint.Year - 1, false
	}
	return hint.Year, false
}

func normalizeDate(s string) string {
	s = CollapseSpaces(s)
	s = strings.ReplaceAll(s, ".", "")
	// Go's month table has no "Sept".
	return septPattern.ReplaceAllString(s, "Sep")
}

// SaleDate picks the transaction date of a dual-date row: the sale date, the
// first of the pair. When both dates were resolved into the same year but the
// sale month comes after the posting month, the row straddles New Year and
// the sale belongs to the previous year.
func SaleDate(sale, posted time.Time) time.Time {
	if posted.IsZero() || !sale.After(posted) {
		return sale
	}
	if sale.Year() == posted.Year() && sale.Month() > posted.Month() {
		return sale.AddDate(-1, 0, 0)
	}
	return sale
}

var numericDate = regexp.MustCompile(`(?:^|[^\d/-])(\d{1,2})[/-](\d{1,2})(?:[/-]\d{2,4})?\b`)

// DetectOrder guesses how the all-numeric dates of a document are written.
// A first component above 12 can only be a day and a second component above
// 12 can only be a day; the majority wins and ties read month first.
func DetectOrder(text string) Order {
	dayFirst, monthFirst := 0, 0
	for _, m := range numericDate.FindAllStringSubmatch(text, -1) {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		switch {
		case a > 12 && a <= 31 && b >= 1 && b <= 12:
			dayFirst++
		case b > 12 && b <= 31 && a >= 1 && a <= 12:
			monthFirst++
		}
	}
	if dayFirst > monthFirst {
		return DayFirst
	}
	return MonthFirst
}

var periodDate = `(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|` + MonthPattern() + `\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+` + MonthPattern() + `\s+\d{4})`

var periodPattern = regexp.MustCompile(`(?i)(` + periodDate + `)\s*(?:-|–|to|through|thru)\s*(` + periodDate + `)`)

// FindPeriod looks for a printed statement period such as
// "06/12/25 - 07/11/25" or "May 22, 2025 - Jun 20, 2025".
func FindPeriod(text string, order Order) (start, end time.Time, ok bool) {
	for _, m := range periodPattern.FindAllStringSubmatch(text, -1) {
		hint := YearHint{Order: order}
		s, _, err1 := ParseDate(m[1], hint)
		e, _, err2 := ParseDate(m[2], hint)
		if err1 != nil || err2 != nil || e.Before(s) {
			continue
		}
		return s, e, true
	}
	return time.Time{}, time.Time{}, false
}

// HintFromPeriod builds the year hint for a statement ending at end.
func HintFromPeriod(end time.Time, order Order) YearHint {
	if end.IsZero() {
		return YearHint{Order: order}
	}
	return YearHint{Year: end.Year(), EndMonth: end.Month(), Order: order}
}
