package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abpulse/pkg/contracts/domain"
)

func TestParseBucket(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Bucket
		wantErr bool
	}{
		{in: "", want: domain.BucketDay},
		{in: "day", want: domain.BucketDay},
		{in: "Week", want: domain.BucketWeek},
		{in: " month ", want: domain.BucketMonth},
		{in: "year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBucket(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFilter))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBucketStart(t *testing.T) {
	// 2019-01-06 is a Sunday
	sunday := time.Date(2019, 1, 6, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, date("2019-01-06"), BucketStart(sunday, domain.BucketDay))
	assert.Equal(t, date("2019-01-31"), BucketStart(date("2019-01-31"), domain.BucketDay))
	assert.Equal(t, date("2018-12-31"), BucketStart(sunday, domain.BucketWeek))
	assert.Equal(t, date("2019-01-07"), BucketStart(date("2019-01-07"), domain.BucketWeek))
	assert.Equal(t, date("2019-01-01"), BucketStart(sunday, domain.BucketMonth))
}

func TestTimeSeries_Daily(t *testing.T) {
	s := TimeSeries(fixture(), domain.Filter{}, domain.BucketDay)

	assert.Equal(t, domain.BucketDay, s.Bucket)
	assert.Equal(t, []time.Time{date("2019-01-01"), date("2019-01-02"), date("2019-01-08"), date("2019-02-01")}, s.Buckets)
	require.Len(t, s.Points, 5)

	first := s.Points[0]
	assert.Equal(t, date("2019-01-01"), first.Start)
	assert.Equal(t, domain.PlatformFacebook, first.Platform)
	assert.Equal(t, domain.PlatformAdWords, s.Points[1].Platform)

	// AdWords had a zero-click day
	var zero *domain.SeriesPoint
	for i := range s.Points {
		if s.Points[i].Start.Equal(date("2019-01-08")) {
			zero = &s.Points[i]
		}
	}
	require.NotNil(t, zero)
	assert.Nil(t, zero.CPC)
}

func TestTimeSeries_BucketsSumToSummary(t *testing.T) {
	for _, b := range []domain.Bucket{domain.BucketDay, domain.BucketWeek, domain.BucketMonth} {
		t.Run(string(b), func(t *testing.T) {
			s := TimeSeries(fixture(), domain.Filter{}, b)
			sum := Summarize(fixture(), domain.Filter{})

			var spend float64
			var clicks int64
			var records int
			for _, p := range s.Points {
				spend += p.Spend
				clicks += p.Clicks
				records += p.Records
			}
			assert.InDelta(t, sum.Total.Spend, spend, 1e-9)
			assert.Equal(t, sum.Total.Clicks, clicks)
			assert.Equal(t, sum.Total.Records, records)
		})
	}
}

func TestTimeSeries_Monthly(t *testing.T) {
	s := TimeSeries(fixture(), domain.Filter{}, domain.BucketMonth)

	assert.Equal(t, []time.Time{date("2019-01-01"), date("2019-02-01")}, s.Buckets)
	require.Len(t, s.Points, 3)
	assert.Equal(t, 2, s.Points[0].Records)
	assert.Equal(t, 2, s.Points[1].Records)
	assert.Equal(t, domain.PlatformFacebook, s.Points[2].Platform)
	assert.Equal(t, 1, s.Points[2].Records)
	assert.Equal(t, []domain.Platform{domain.PlatformFacebook, domain.PlatformAdWords}, SeriesPlatforms(s))
}

func TestTimeSeries_PlatformFilter(t *testing.T) {
	s := TimeSeries(fixture(), domain.Filter{Platform: domain.PlatformAdWords}, "")

	assert.Equal(t, domain.BucketDay, s.Bucket)
	assert.Equal(t, []domain.Platform{domain.PlatformAdWords}, SeriesPlatforms(s))
	for _, p := range s.Points {
		assert.Equal(t, domain.PlatformAdWords, p.Platform)
	}
}

func TestTimeSeries_Empty(t *testing.T) {
	s := TimeSeries(nil, domain.Filter{}, domain.BucketWeek)

	assert.Empty(t, s.Buckets)
	assert.Empty(t, s.Points)
	assert.Empty(t, SeriesPlatforms(s))
}
