package report

import (
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/chrono/internal/store"
)

// A Window narrows a report to entries whose start_time falls inside it.
// Windows are plain Sqlizers so they compose with scope and filter
// predicates on the same builder.
type Window = squirrel.Sqlizer

type dayWindow struct{ date time.Time }

func (w dayWindow) ToSql() (string, []interface{}, error) {
	return "DATE_TRUNC('day', te.start_time) = DATE_TRUNC('day', ?::timestamptz)",
		[]interface{}{w.date}, nil
}

// Day covers the calendar date of the given time.
func Day(date time.Time) Window {
	return dayWindow{date: date}
}

type weekWindow struct{ year, week int }

func (w weekWindow) ToSql() (string, []interface{}, error) {
	// EXTRACT(WEEK) in Postgres is the ISO-8601 week (Monday start);
	// ISOYEAR keeps the year boundary consistent with it.
	return "EXTRACT(WEEK FROM te.start_time) = ? AND EXTRACT(ISOYEAR FROM te.start_time) = ?",
		[]interface{}{w.week, w.year}, nil
}

// ISOWeek covers an ISO-8601 week of a year.
func ISOWeek(year, week int) Window {
	return weekWindow{year: year, week: week}
}

type monthWindow struct {
	year  int
	month time.Month
}

func (w monthWindow) ToSql() (string, []interface{}, error) {
	return "EXTRACT(MONTH FROM te.start_time) = ? AND EXTRACT(YEAR FROM te.start_time) = ?",
		[]interface{}{int(w.month), w.year}, nil
}

// Month covers a calendar month of a year.
func Month(year int, month time.Month) Window {
	return monthWindow{year: year, month: month}
}

type rangeWindow struct{ start, end time.Time }

func (w rangeWindow) ToSql() (string, []interface{}, error) {
	// End date is inclusive through its last second.
	return "te.start_time >= ?::timestamptz AND te.start_time < ?::timestamptz + INTERVAL '1 day'",
		[]interface{}{w.start, w.end}, nil
}

// Range covers [start, end] with end taken as end-of-day.
func Range(start, end time.Time) Window {
	return rangeWindow{start: start, end: end}
}

// elapsedExpr is the one place the duration formula lives in SQL: stored
// end_time for closed entries, the clock for open ones, floored to whole
// seconds.
const elapsedExpr = "COALESCE(SUM(FLOOR(EXTRACT(EPOCH FROM (COALESCE(te.end_time, NOW()) - te.start_time))))::bigint, 0)"

// ElapsedSeconds is the Go-side counterpart of elapsedExpr, used for live
// displays of a running entry. Never negative for rows that satisfy the
// schema's time-order constraint.
func ElapsedSeconds(entry *store.TimeEntry, now time.Time) int64 {
	end := now
	if entry.EndTime != nil {
		end = *entry.EndTime
	}
	d := end.Sub(entry.StartTime)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// FormatDuration renders integer seconds as HH:MM:SS.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// averageSeconds is total/count rounded half up; 0 when there is nothing
// to average.
func averageSeconds(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return (total + count/2) / count
}
