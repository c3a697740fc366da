package domain

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies the ad network a record was observed on
type Platform string

const (
	PlatformFacebook Platform = "Facebook"
	PlatformAdWords  Platform = "AdWords"
	// PlatformAll is a filter value only; records never carry it
	PlatformAll Platform = "All"
)

// Platforms lists the concrete platforms in display order
var Platforms = []Platform{PlatformFacebook, PlatformAdWords}

// ParsePlatform normalizes user and file input to a Platform.
// An empty string maps to PlatformAll.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return PlatformAll, nil
	case "facebook", "fb", "meta":
		return PlatformFacebook, nil
	case "adwords", "adword", "google ads", "googleads", "google", "aw":
		return PlatformAdWords, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// IsConcrete reports whether p names a real platform rather than the All filter
func (p Platform) IsConcrete() bool {
	return p == PlatformFacebook || p == PlatformAdWords
}

// CampaignRecord is one observation of a platform on a given day
type CampaignRecord struct {
	Platform    Platform  `json:"platform" validate:"required,oneof=Facebook AdWords"`
	Date        time.Time `json:"date" validate:"required"`
	Spend       float64   `json:"spend" validate:"gte=0"`
	Impressions int64     `json:"impressions" validate:"gte=0"`
	Clicks      int64     `json:"clicks" validate:"gte=0"`
	Conversions int64     `json:"conversions" validate:"gte=0"`
}

// DatasetInfo describes the snapshot currently served
type DatasetInfo struct {
	Source      string     `json:"source"`
	Format      string     `json:"format"`
	Records     int        `json:"records"`
	Platforms   []Platform `json:"platforms"`
	FirstDate   *time.Time `json:"first_date,omitempty"`
	LastDate    *time.Time `json:"last_date,omitempty"`
	Fingerprint string     `json:"fingerprint"`
	LoadedAt    time.Time  `json:"loaded_at"`
}
