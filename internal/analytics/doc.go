// Package analytics turns campaign records into chart-ready aggregates.
//
// Every function here is pure: it takes the immutable record slice of a
// dataset snapshot plus a filter and returns a fresh value. Ratios whose
// denominator is zero are reported as nil pointers so that JSON carries
// null and charts leave a gap.
//
//	summary := analytics.Summarize(table.Records(), filter)
//	series := analytics.TimeSeries(table.Records(), filter, domain.BucketWeek)
//	insights := analytics.Compare(summary)
package analytics
