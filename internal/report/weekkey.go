package report

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/synapse-sync/core/internal/apperr"
)

// weekKeyRe matches the required "YYYY-WNN" format; a bare "YYYY-WW" (no
// literal W) is deliberately rejected (SPEC_FULL.md's week-key deviation).
var weekKeyRe = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ParseWeekKey validates and decomposes a week_key into (year, week).
func ParseWeekKey(weekKey string) (year, week int, err error) {
	m := weekKeyRe.FindStringSubmatch(weekKey)
	if m == nil {
		return 0, 0, apperr.New(apperr.Validation, "week_key must match YYYY-WNN")
	}
	year, _ = strconv.Atoi(m[1])
	week, _ = strconv.Atoi(m[2])

	if year < 2000 || year > 2100 {
		return 0, 0, apperr.New(apperr.Validation, "week_key year out of range [2000,2100]")
	}
	if week < 1 || week > 53 {
		return 0, 0, apperr.New(apperr.Validation, "week_key week out of range [1,53]")
	}
	return year, week, nil
}

// ISOWeekRange computes [monday_00:00, next_monday_00:00) for the given ISO
// week, anchored on the ISO-8601 rule that week 1 contains January 4th.
func ISOWeekRange(year, week int) (start, end time.Time) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	daysSinceMonday := (int(jan4.Weekday()) + 6) % 7
	week1Monday := jan4.AddDate(0, 0, -daysSinceMonday)

	start = week1Monday.AddDate(0, 0, (week-1)*7)
	end = start.AddDate(0, 0, 7)
	return start, end
}

// PreviousWeekKey returns the week_key immediately preceding weekKey.
func PreviousWeekKey(year, week int) (prevYear, prevWeek int) {
	if week > 1 {
		return year, week - 1
	}
	// Last ISO week of the previous year is 52 or 53; derive it from the
	// date 7 days before this year's week-1 Monday.
	start, _ := ISOWeekRange(year, 1)
	prevMonday := start.AddDate(0, 0, -7)
	y, w := prevMonday.ISOWeek()
	return y, w
}

// FormatWeekKey renders (year, week) back to "YYYY-WNN".
func FormatWeekKey(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
