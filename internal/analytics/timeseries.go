package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"abpulse/pkg/contracts/domain"
)

// ParseBucket maps a query value to a Bucket; empty means daily
func ParseBucket(s string) (domain.Bucket, error) {
	switch domain.Bucket(strings.ToLower(strings.TrimSpace(s))) {
	case "", domain.BucketDay:
		return domain.BucketDay, nil
	case domain.BucketWeek:
		return domain.BucketWeek, nil
	case domain.BucketMonth:
		return domain.BucketMonth, nil
	}
	return "", &FieldError{Field: "bucket", Message: fmt.Sprintf("unknown bucket %q, want day, week or month", s)}
}

// BucketStart returns the first day of the bucket containing t.
// Weeks start on Monday.
func BucketStart(t time.Time, b domain.Bucket) time.Time {
	d := day(t)
	switch b {
	case domain.BucketWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case domain.BucketMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

type seriesKey struct {
	start    time.Time
	platform domain.Platform
}

// TimeSeries groups the records matching f by bucket and platform.
// Only cells that have at least one record produce a point; renderers
// treat the missing cells as gaps.
func TimeSeries(records []domain.CampaignRecord, f domain.Filter, b domain.Bucket) domain.Series {
	f = Normalize(f)
	if b == "" {
		b = domain.BucketDay
	}

	cells := make(map[seriesKey]*accumulator)
	seen := make(map[time.Time]struct{})
	for _, r := range records {
		if !Match(r, f) {
			continue
		}
		k := seriesKey{start: BucketStart(r.Date, b), platform: r.Platform}
		acc, ok := cells[k]
		if !ok {
			acc = &accumulator{}
			cells[k] = acc
		}
		acc.add(r)
		seen[k.start] = struct{}{}
	}

	series := domain.Series{
		Filter:  f,
		Bucket:  b,
		Buckets: make([]time.Time, 0, len(seen)),
		Points:  make([]domain.SeriesPoint, 0, len(cells)),
	}
	for start := range seen {
		series.Buckets = append(series.Buckets, start)
	}
	sort.Slice(series.Buckets, func(i, j int) bool { return series.Buckets[i].Before(series.Buckets[j]) })

	for _, start := range series.Buckets {
		for _, p := range domain.Platforms {
			acc, ok := cells[seriesKey{start: start, platform: p}]
			if !ok {
				continue
			}
			series.Points = append(series.Points, domain.SeriesPoint{
				Start:    start,
				Platform: p,
				Metrics:  acc.metrics(),
			})
		}
	}
	return series
}

// SeriesPlatforms lists the platforms that have at least one point
func SeriesPlatforms(s domain.Series) []domain.Platform {
	present := make(map[domain.Platform]bool)
	for _, pt := range s.Points {
		present[pt.Platform] = true
	}
	out := make([]domain.Platform, 0, len(present))
	for _, p := range domain.Platforms {
		if present[p] {
			out = append(out, p)
		}
	}
	return out
}
