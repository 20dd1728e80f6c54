package harvest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// apiDateLayout is the datetime shape the API expects: date and time joined
// by 'T', second precision, no zone.
const apiDateLayout = "2006-01-02T15:04:05"

// dayLayout is a bare calendar day.
const dayLayout = "2006-01-02"

// InferEndDate returns "now" in the API's datetime shape, used when the
// caller gives no end date.
func InferEndDate() string {
	return time.Now().Format(apiDateLayout)
}

// ComplementDate pads a partial date ("2021", "2021-06", "2021-06-03") to a
// full API datetime. bound is "start" or "end": start bounds pad toward the
// earliest instant (Jan, day 1, midnight), end bounds toward the latest
// (Dec, last day of month, one second before midnight).
func ComplementDate(d, bound string) string {
	if len(d) == 4 {
		if bound == "start" {
			d += "-01"
		} else {
			d += "-12"
		}
	}

	if len(d) == 7 {
		if bound == "start" {
			d += "-01"
		} else {
			year, _ := strconv.Atoi(d[:4])
			month, _ := strconv.Atoi(d[5:7])
			d += fmt.Sprintf("-%02d", lastDayOfMonth(year, month))
		}
	}

	if len(d) == 10 {
		if bound == "start" {
			d += "T00:00:00"
		} else {
			d += "T23:59:59"
		}
	}

	return d
}

// lastDayOfMonth returns the day number of a month's final day.
func lastDayOfMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dayRange walks single calendar days backward, from the day before a given
// anchor down to (and including) a start day.
type dayRange struct {
	current time.Time
	start   time.Time
}

// newDayRange builds a range over [start, today-1] walked backward. startDate
// is a bare "YYYY-MM-DD" day.
func newDayRange(startDate string, today time.Time) (*dayRange, error) {
	start, err := time.Parse(dayLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", startDate, err)
	}

	return &dayRange{
		current: time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		start:   start,
	}, nil
}

// next consumes one day, newest first. ok is false once the range is done.
func (r *dayRange) next() (day string, ok bool) {
	r.current = r.current.AddDate(0, 0, -1)
	if r.current.Before(r.start) {
		return "", false
	}
	return r.current.Format(dayLayout), true
}

// yearRange walks backward year by year from an end datetime to the year of
// a start datetime. Interior years are clamped to Jan 1 00:00:00 and
// Dec 31 23:59:59; the first and last partial years keep the caller's
// original bounds.
type yearRange struct {
	startDate string
	current   int
	target    int

	nextStart string
	nextEnd   string
	done      bool
}

// newYearRange builds the backward range over full API datetimes.
func newYearRange(startDate, endDate string) *yearRange {
	current, _ := strconv.Atoi(endDate[:4])
	target, _ := strconv.Atoi(startDate[:4])

	return &yearRange{
		startDate: startDate,
		current:   current,
		target:    target,
		nextStart: strconv.Itoa(current) + "-01-01T00:00:00",
		nextEnd:   endDate,
	}
}

// next yields one (start, end) window, newest year first.
func (r *yearRange) next() (start, end string, ok bool) {
	if r.done {
		return "", "", false
	}

	if r.current > r.target {
		start, end = r.nextStart, r.nextEnd

		r.current--
		r.nextEnd = strconv.Itoa(r.current) + "-12-31T23:59:59"
		r.nextStart = strconv.Itoa(r.current) + r.nextStart[4:]

		return start, end, true
	}

	r.done = true
	return r.startDate, r.nextEnd, true
}

// normalizeEndDate applies the end-date conventions of the API: empty means
// "now", and a bare day means just before the following midnight.
func normalizeEndDate(endDate string) string {
	if endDate == "" {
		return InferEndDate()
	}
	if !strings.Contains(endDate, "T") {
		return endDate + "T23:59:59"
	}
	return endDate
}
