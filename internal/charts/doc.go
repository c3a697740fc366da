// Package charts renders dashboard charts with go-echarts.
//
// Bar charts compare platforms on a summary; line charts draw one series
// per platform over the buckets of a time series. Undefined values are
// emitted as the ECharts missing marker so lines break instead of
// dropping to zero.
package charts
