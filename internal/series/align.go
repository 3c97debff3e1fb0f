package series

import (
	"sort"

	"analyticsScope/internal/model"
)

// Dates is a set of bucket start times in epoch seconds.
type Dates map[int64]struct{}

// Add inserts ts.
func (d Dates) Add(ts int64) {
	d[ts] = struct{}{}
}

// Sorted returns the dates ascending.
func (d Dates) Sorted() []int64 {
	out := make([]int64, 0, len(d))
	for ts := range d {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BucketTime returns the bucket start from the id prefix, falling back to the timestamp field.
func BucketTime(b model.Bucket) (int64, bool) {
	h := b.Header()
	if ts, ok := h.Time(); ok {
		return ts, true
	}
	if h.Timestamp != 0 {
		return h.Timestamp, true
	}
	return 0, false
}

// CollectDates unions the bucket times of several series.
func CollectDates[T model.Bucket](series ...[]T) Dates {
	dates := Dates{}
	for _, s := range series {
		for _, b := range s {
			if ts, ok := BucketTime(b); ok {
				dates.Add(ts)
			}
		}
	}
	return dates
}

// CollectAllDates unions the bucket times of one granularity across every entity.
func CollectAllDates[D model.Bucket](groups []*model.GroupedHistory[D], kind model.Kind) Dates {
	dates := Dates{}
	for _, g := range groups {
		switch kind {
		case model.KindWeekly:
			addDates(dates, g.Weekly)
		case model.KindMonthly:
			addDates(dates, g.Monthly)
		default:
			addDates(dates, g.Daily)
		}
	}
	return dates
}

func addDates[T model.Bucket](dates Dates, series []T) {
	for _, b := range series {
		if ts, ok := BucketTime(b); ok {
			dates.Add(ts)
		}
	}
}

// Justify returns exactly one bucket per date, ascending. Existing buckets are reused as is;
// missing dates get a zero bucket whose account source is taken from the series, or from
// fallbackSource when the series is empty.
func Justify[T model.Bucket](schema model.Schema[T], series []T, dates Dates, fallbackSource string) ([]T, error) {
	byTime := make(map[int64]T, len(series))
	for _, b := range series {
		if ts, ok := BucketTime(b); ok {
			byTime[ts] = b
		}
	}

	source := fallbackSource
	if len(series) > 0 {
		source = series[0].Header().AccountSource
	}

	sorted := dates.Sorted()
	out := make([]T, 0, len(sorted))
	for _, ts := range sorted {
		if b, ok := byTime[ts]; ok {
			out = append(out, b)
			continue
		}
		if source == "" {
			return nil, &AlignmentError{Entity: schema.Entity}
		}
		out = append(out, schema.Empty(ts, source))
	}
	return out, nil
}

// Collapse merges buckets of one series that share a bucket time, keeping the later timestamp.
func Collapse[T model.Bucket](schema model.Schema[T], series []T) []T {
	order := make([]int64, 0, len(series))
	byTime := make(map[int64]T, len(series))
	out := make([]T, 0, len(series))
	for _, b := range series {
		ts, ok := BucketTime(b)
		if !ok {
			out = append(out, b)
			continue
		}
		prev, seen := byTime[ts]
		if !seen {
			order = append(order, ts)
			byTime[ts] = b
			continue
		}
		merged := Combine(schema, []T{prev, b})
		if b.Header().Timestamp > prev.Header().Timestamp {
			merged.Header().Timestamp = b.Header().Timestamp
		}
		byTime[ts] = merged
	}
	for _, ts := range order {
		out = append(out, byTime[ts])
	}
	return out
}
