package series

import (
	"strings"

	"github.com/shopspring/decimal"

	"analyticsScope/internal/model"
)

// avgScale is the number of fractional digits kept by weighted averages.
const avgScale = 18

// Combine folds buckets of the same period into one. Sum fields are added exactly;
// each weighted field becomes sum(v*w)/sum(w), or zero when the weights sum to zero.
// The header is taken from the first bucket, with every distinct account source joined by ",".
func Combine[T model.Bucket](schema model.Schema[T], buckets []T) T {
	out := schema.New()
	if len(buckets) == 0 {
		return out
	}

	first := buckets[0].Header()
	header := out.Header()
	header.ID = first.ID
	header.Timestamp = first.Timestamp
	header.AccountSource = joinSources(buckets)

	for _, f := range schema.SumFields {
		total := decimal.Zero
		for _, b := range buckets {
			total = total.Add(b.Get(f))
		}
		out.Set(f, total)
	}

	for _, pair := range schema.AvgFields {
		weighted := decimal.Zero
		weight := decimal.Zero
		for _, b := range buckets {
			w := b.Get(pair.Weight)
			weighted = weighted.Add(b.Get(pair.Value).Mul(w))
			weight = weight.Add(w)
		}
		if weight.IsZero() {
			out.Set(pair.Value, decimal.Zero)
			continue
		}
		out.Set(pair.Value, weighted.DivRound(weight, avgScale))
	}

	return out
}

// MergeAll is Combine over a list that may come from several entities.
func MergeAll[T model.Bucket](schema model.Schema[T], buckets []T) T {
	return Combine(schema, buckets)
}

// MergePair merges two aligned series index by index. The tail of the longer one is kept as is.
func MergePair[T model.Bucket](schema model.Schema[T], a, b []T) []T {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case i < len(a) && i < len(b):
			out = append(out, Combine(schema, []T{a[i], b[i]}))
		case i < len(a):
			out = append(out, a[i])
		default:
			out = append(out, b[i])
		}
	}
	return out
}

// MergeByName merges entities sharing Index.Name, keeping the order names were first seen.
// Inputs must already be aligned per granularity.
func MergeByName[D model.Bucket](groups []*model.GroupedHistory[D], daily model.Schema[D]) []*model.GroupedHistory[D] {
	byName := make(map[string]*model.GroupedHistory[D], len(groups))
	out := make([]*model.GroupedHistory[D], 0, len(groups))
	for _, g := range groups {
		existing, ok := byName[g.Index.Name]
		if !ok {
			merged := &model.GroupedHistory[D]{
				Index:   g.Index,
				Daily:   g.Daily,
				Weekly:  g.Weekly,
				Monthly: g.Monthly,
			}
			byName[g.Index.Name] = merged
			out = append(out, merged)
			continue
		}
		existing.Daily = MergePair(daily, existing.Daily, g.Daily)
		existing.Weekly = MergePair(model.WeeklySchema, existing.Weekly, g.Weekly)
		existing.Monthly = MergePair(model.MonthlySchema, existing.Monthly, g.Monthly)
	}
	return out
}

func joinSources[T model.Bucket](buckets []T) string {
	seen := make(map[string]struct{}, len(buckets))
	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		for _, src := range strings.Split(b.Header().AccountSource, ",") {
			if src == "" {
				continue
			}
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			parts = append(parts, src)
		}
	}
	return strings.Join(parts, ",")
}
