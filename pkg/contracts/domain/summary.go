package domain

import "time"

// Filter selects the records an aggregation runs over.
// Zero Start or End leaves that side of the range open.
type Filter struct {
	Platform Platform  `json:"platform" validate:"omitempty,oneof=Facebook AdWords All"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty" validate:"omitempty,gtefield=Start"`
}

// Metrics holds totals, per-record means and derived ratios for one group.
// Ratios are nil when their denominator is zero.
type Metrics struct {
	Records     int     `json:"records"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`

	AvgSpend       *float64 `json:"avg_spend"`
	AvgImpressions *float64 `json:"avg_impressions"`
	AvgClicks      *float64 `json:"avg_clicks"`
	AvgConversions *float64 `json:"avg_conversions"`

	CPC               *float64 `json:"cpc"`
	CTR               *float64 `json:"ctr"`
	ConversionRate    *float64 `json:"conversion_rate"`
	CostPerConversion *float64 `json:"cost_per_conversion"`
}

// PlatformSummary is the aggregate of one platform
type PlatformSummary struct {
	Platform Platform `json:"platform"`
	Metrics
}

// Summary is the Aggregated Summary for a filter
type Summary struct {
	Filter    Filter            `json:"filter"`
	Platforms []PlatformSummary `json:"platforms"`
	Total     Metrics           `json:"total"`
	Empty     bool              `json:"empty"`
}

// Platform returns the group for p, or false when p had no matching rows
func (s Summary) Platform(p Platform) (PlatformSummary, bool) {
	for _, ps := range s.Platforms {
		if ps.Platform == p {
			return ps, true
		}
	}
	return PlatformSummary{}, false
}

// Bucket is the time granularity of a series
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// SeriesPoint is one (bucket, platform) cell of a time series
type SeriesPoint struct {
	Start    time.Time `json:"start"`
	Platform Platform  `json:"platform"`
	Metrics
}

// Series is a time-bucketed aggregation ordered by bucket then platform
type Series struct {
	Filter  Filter        `json:"filter"`
	Bucket  Bucket        `json:"bucket"`
	Buckets []time.Time   `json:"buckets"`
	Points  []SeriesPoint `json:"points"`
}

// Direction says which side of a comparison wins
type Direction string

const (
	HigherBetter Direction = "higher_better"
	LowerBetter  Direction = "lower_better"
)

// Comparison pits Facebook against AdWords on one metric
type Comparison struct {
	Metric    string    `json:"metric"`
	Label     string    `json:"label"`
	Direction Direction `json:"direction"`
	Facebook  *float64  `json:"facebook"`
	AdWords   *float64  `json:"adwords"`
	// Display values, "n/a" for undefined
	FacebookText string `json:"facebook_text"`
	AdWordsText  string `json:"adwords_text"`
	// Winner is nil on a tie or when either side is undefined
	Winner *Platform `json:"winner"`
}

// Insights is the key-insights block of the dashboard
type Insights struct {
	Comparisons  []Comparison `json:"comparisons"`
	BestPlatform *Platform    `json:"best_platform"`
	Message      string       `json:"message"`
}
