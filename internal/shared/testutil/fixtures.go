package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"abpulse/pkg/contracts/domain"
)

// CampaignsCSV is a small long-layout dataset: two Facebook days and two
// AdWords days in the first week of 2019
const CampaignsCSV = `Platform,Date,Cost,Views,Clicks,Conversions
Facebook,2019-01-01,100,2000,10,2
Facebook,2019-01-02,50,1000,5,1
AdWords,2019-01-01,200,4000,20,3
AdWords,2019-01-02,150,3000,12,2
`

// WriteCampaigns writes CampaignsCSV plus extra rows to campaigns.csv in
// dir and returns the path. Writing again to the same dir replaces it.
func WriteCampaigns(t testing.TB, dir string, extraRows ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(CampaignsCSV)
	for _, row := range extraRows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, "campaigns.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Day is midnight UTC of a YYYY-MM-DD date
func Day(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse day %q: %v", s, err)
	}
	return d
}

// CampaignRecords is CampaignsCSV as parsed records
func CampaignRecords(t testing.TB) []domain.CampaignRecord {
	t.Helper()
	return []domain.CampaignRecord{
		{Date: Day(t, "2019-01-01"), Platform: domain.PlatformFacebook, Spend: 100, Impressions: 2000, Clicks: 10, Conversions: 2},
		{Date: Day(t, "2019-01-02"), Platform: domain.PlatformFacebook, Spend: 50, Impressions: 1000, Clicks: 5, Conversions: 1},
		{Date: Day(t, "2019-01-01"), Platform: domain.PlatformAdWords, Spend: 200, Impressions: 4000, Clicks: 20, Conversions: 3},
		{Date: Day(t, "2019-01-02"), Platform: domain.PlatformAdWords, Spend: 150, Impressions: 3000, Clicks: 12, Conversions: 2},
	}
}
