package database

import "time"

// CurrentWeek returns the boundaries of the week containing now. Weeks start
// on Monday: the start is the most recent Monday at 00:00:00.000 (Sunday
// counts as day 7 of the running week, not day 0 of the next) and the end is
// six days later at 23:59:59.999, both in now's location.
func CurrentWeek(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := now.AddDate(0, 0, -(weekday - 1))

	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 6).Add(24*time.Hour - time.Millisecond)

	return start, end
}
