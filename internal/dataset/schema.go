package dataset

import (
	"fmt"
	"sort"
	"strings"

	"abpulse/pkg/contracts/domain"
)

// Layout names the header shape a source was recognised as
type Layout string

const (
	// LayoutLong has one row per platform and day
	LayoutLong Layout = "long"
	// LayoutWide has one row per day with a column group per platform
	LayoutWide Layout = "wide"
)

// column lists the accepted header spellings of one logical field
type column struct {
	name    string
	aliases []string
}

var longColumns = []column{
	{name: "platform", aliases: []string{"platform", "channel", "network"}},
	{name: "date", aliases: []string{"date", "day", "date_of_campaign"}},
	{name: "spend", aliases: []string{"spend", "cost", "cost_per_ad"}},
	{name: "impressions", aliases: []string{"impressions", "views", "ad_views"}},
	{name: "clicks", aliases: []string{"clicks", "ad_clicks"}},
	{name: "conversions", aliases: []string{"conversions", "ad_conversions"}},
}

// wideGroup is the column group of one platform in the wide layout
type wideGroup struct {
	platform domain.Platform
	prefix   string
}

var wideGroups = []wideGroup{
	{platform: domain.PlatformFacebook, prefix: "facebook"},
	{platform: domain.PlatformAdWords, prefix: "adword"},
}

var wideMeasures = []string{"ad_views", "ad_clicks", "ad_conversions", "cost_per_ad"}

// header maps normalized column names to their index
type header map[string]int

func newHeader(cells []string) header {
	h := make(header, len(cells))
	for i, c := range cells {
		name := normalizeColumn(c)
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

func normalizeColumn(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

func (h header) find(c column) (int, bool) {
	for _, a := range c.aliases {
		if i, ok := h[a]; ok {
			return i, true
		}
	}
	return 0, false
}

// schema binds a recognised layout to concrete column indexes
type schema struct {
	layout Layout
	// long layout: logical name -> index
	long map[string]int
	// wide layout: date index and per-platform measure indexes
	date int
	wide map[domain.Platform]map[string]int
}

// detectSchema recognises the long or wide layout. A header that fits
// neither is reported against the closer of the two.
func detectSchema(cells []string) (*schema, []string) {
	h := newHeader(cells)

	long := make(map[string]int, len(longColumns))
	var longMissing []string
	for _, c := range longColumns {
		if i, ok := h.find(c); ok {
			long[c.name] = i
		} else {
			longMissing = append(longMissing, c.name)
		}
	}
	if len(longMissing) == 0 {
		return &schema{layout: LayoutLong, long: long}, nil
	}

	var wideMissing []string
	dateIdx, ok := h.find(column{aliases: []string{"date_of_campaign", "date", "day"}})
	if !ok {
		wideMissing = append(wideMissing, "date_of_campaign")
	}
	wide := make(map[domain.Platform]map[string]int, len(wideGroups))
	for _, g := range wideGroups {
		wide[g.platform] = make(map[string]int, len(wideMeasures))
		for _, m := range wideMeasures {
			name := g.prefix + "_" + m
			i, found := h[name]
			if !found {
				// tolerate "adwords_" for the AdWords group
				i, found = h[g.prefix+"s_"+m]
			}
			if !found {
				wideMissing = append(wideMissing, name)
				continue
			}
			wide[g.platform][m] = i
		}
	}
	if len(wideMissing) == 0 {
		return &schema{layout: LayoutWide, date: dateIdx, wide: wide}, nil
	}

	if len(wideMissing) < len(longMissing) {
		sort.Strings(wideMissing)
		return nil, wideMissing
	}
	return nil, longMissing
}

// records converts data rows into records. rowOffset is the 1-based row
// number of the first data row.
func (s *schema) records(source string, rows [][]string, rowOffset int) ([]domain.CampaignRecord, error) {
	out := make([]domain.CampaignRecord, 0, len(rows)*2)
	for i, row := range rows {
		if blank(row) {
			continue
		}
		rowNum := rowOffset + i
		switch s.layout {
		case LayoutLong:
			r, err := s.longRecord(source, rowNum, row)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		case LayoutWide:
			rs, err := s.wideRecords(source, rowNum, row)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
	}
	return out, nil
}

func (s *schema) longRecord(source string, rowNum int, row []string) (domain.CampaignRecord, error) {
	var r domain.CampaignRecord

	platform := cell(row, s.long["platform"])
	p, err := domain.ParsePlatform(platform)
	if err != nil || !p.IsConcrete() {
		return r, cellErr(source, rowNum, "platform", fmt.Sprintf("unknown platform %q", platform))
	}
	r.Platform = p

	if r.Date, err = parseDate(cell(row, s.long["date"])); err != nil {
		return r, cellErr(source, rowNum, "date", err.Error())
	}
	if r.Spend, err = parseNumber(cell(row, s.long["spend"])); err != nil {
		return r, cellErr(source, rowNum, "spend", err.Error())
	}
	if r.Impressions, err = parseCount(cell(row, s.long["impressions"])); err != nil {
		return r, cellErr(source, rowNum, "impressions", err.Error())
	}
	if r.Clicks, err = parseCount(cell(row, s.long["clicks"])); err != nil {
		return r, cellErr(source, rowNum, "clicks", err.Error())
	}
	if r.Conversions, err = parseCount(cell(row, s.long["conversions"])); err != nil {
		return r, cellErr(source, rowNum, "conversions", err.Error())
	}
	return r, validateRecord(source, rowNum, r)
}

func (s *schema) wideRecords(source string, rowNum int, row []string) ([]domain.CampaignRecord, error) {
	date, err := parseDate(cell(row, s.date))
	if err != nil {
		return nil, cellErr(source, rowNum, "date_of_campaign", err.Error())
	}

	out := make([]domain.CampaignRecord, 0, len(wideGroups))
	for _, g := range wideGroups {
		idx := s.wide[g.platform]
		r := domain.CampaignRecord{Platform: g.platform, Date: date}
		col := func(m string) string { return g.prefix + "_" + m }

		if r.Impressions, err = parseCount(cell(row, idx["ad_views"])); err != nil {
			return nil, cellErr(source, rowNum, col("ad_views"), err.Error())
		}
		if r.Clicks, err = parseCount(cell(row, idx["ad_clicks"])); err != nil {
			return nil, cellErr(source, rowNum, col("ad_clicks"), err.Error())
		}
		if r.Conversions, err = parseCount(cell(row, idx["ad_conversions"])); err != nil {
			return nil, cellErr(source, rowNum, col("ad_conversions"), err.Error())
		}
		if r.Spend, err = parseNumber(cell(row, idx["cost_per_ad"])); err != nil {
			return nil, cellErr(source, rowNum, col("cost_per_ad"), err.Error())
		}
		if err := validateRecord(source, rowNum, r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
