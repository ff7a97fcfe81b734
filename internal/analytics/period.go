package analytics

import "time"

// MonthStart returns the first instant of the calendar month that is offset
// months from the month containing now. Negative offsets walk into the past.
func MonthStart(now time.Time, offset int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, offset, 0)
}

// MonthEnd returns the last instant (23:59:59.999999999) of the same month.
func MonthEnd(now time.Time, offset int) time.Time {
	return MonthStart(now, offset+1).Add(-time.Nanosecond)
}

// MonthLabel renders the month as "January 2006".
func MonthLabel(now time.Time, offset int) string {
	return MonthStart(now, offset).Format("January 2006")
}

// MonthKey renders the month as "2006-01", the bucket key used by trend
// grouping and cache keys.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// daysBetween counts the days spanned by [start, end], rounding partial days
// up and never returning less than 1.
func daysBetween(start, end time.Time) float64 {
	if end.Before(start) {
		return 1
	}
	days := end.Sub(start).Hours() / 24
	whole := float64(int(days))
	if days > whole {
		whole++
	}
	if whole < 1 {
		return 1
	}
	return whole
}
