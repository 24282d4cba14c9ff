package compliance

import "time"

// Day truncates a timestamp to its UTC calendar day. All engine comparisons
// are whole-day: a document expiring today is not yet overdue.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from one day to another.
// Positive when `to` is after `from`.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)) / (24 * time.Hour))
}

func addMonths(t time.Time, months int) time.Time {
	return Day(t).AddDate(0, months, 0)
}
