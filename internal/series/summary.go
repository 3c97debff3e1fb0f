package series

import (
	"time"

	"analyticsScope/internal/model"
)

// Last returns the final bucket of every non-empty series.
func Last[T model.Bucket](series ...[]T) []T {
	out := make([]T, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			out = append(out, s[len(s)-1])
		}
	}
	return out
}

// SecondToLast returns the previous, complete bucket of every series holding at least two.
func SecondToLast[T model.Bucket](series ...[]T) []T {
	out := make([]T, 0, len(series))
	for _, s := range series {
		if len(s) >= 2 {
			out = append(out, s[len(s)-2])
		}
	}
	return out
}

// LastCalendarMonth keeps the buckets that start inside the UTC calendar month before now.
func LastCalendarMonth[T model.Bucket](series []T, now time.Time) []T {
	now = now.UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	from, to := lastMonth.Unix(), thisMonth.Unix()

	out := make([]T, 0)
	for _, b := range series {
		ts, ok := BucketTime(b)
		if !ok {
			continue
		}
		if ts >= from && ts < to {
			out = append(out, b)
		}
	}
	return out
}
