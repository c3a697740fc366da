package dataset

import (
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"abpulse/pkg/contracts/domain"
)

// Format is the kind of source a table was read from
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSheets Format = "sheets"
)

// Table is an immutable snapshot of campaign records.
// Records are ordered by date, then platform display order.
type Table struct {
	source      string
	format      Format
	layout      Layout
	records     []domain.CampaignRecord
	fingerprint string
	loadedAt    time.Time
}

// NewTable copies records into a sorted snapshot
func NewTable(source string, format Format, records []domain.CampaignRecord, loadedAt time.Time) *Table {
	sorted := make([]domain.CampaignRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return platformRank(sorted[i].Platform) < platformRank(sorted[j].Platform)
	})

	return &Table{
		source:      source,
		format:      format,
		records:     sorted,
		fingerprint: fingerprint(sorted),
		loadedAt:    loadedAt,
	}
}

func platformRank(p domain.Platform) int {
	for i, q := range domain.Platforms {
		if q == p {
			return i
		}
	}
	return len(domain.Platforms)
}

// fingerprint hashes a canonical line per record so that equal content
// yields equal digests regardless of source format.
func fingerprint(records []domain.CampaignRecord) string {
	h, _ := blake2b.New256(nil)
	buf := make([]byte, 0, 96)
	for _, r := range records {
		buf = buf[:0]
		buf = append(buf, r.Platform...)
		buf = append(buf, '|')
		buf = r.Date.AppendFormat(buf, "2006-01-02")
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, r.Spend, 'g', -1, 64)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, r.Impressions, 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, r.Clicks, 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, r.Conversions, 10)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Records returns a copy of the snapshot's records
func (t *Table) Records() []domain.CampaignRecord {
	out := make([]domain.CampaignRecord, len(t.records))
	copy(out, t.records)
	return out
}

// View exposes the records without copying. Callers must not modify the slice.
func (t *Table) View() []domain.CampaignRecord {
	return t.records
}

// Preview returns at most n leading records
func (t *Table) Preview(n int) []domain.CampaignRecord {
	if n < 0 || n > len(t.records) {
		n = len(t.records)
	}
	out := make([]domain.CampaignRecord, n)
	copy(out, t.records[:n])
	return out
}

// Len is the number of records
func (t *Table) Len() int { return len(t.records) }

// Source is the path or sheets:// URL the table was read from
func (t *Table) Source() string { return t.source }

// Format is the reader that produced the table
func (t *Table) Format() Format { return t.format }

// Layout reports the header layout, empty for a table without a header
func (t *Table) Layout() Layout { return t.layout }

// LoadedAt is when the table was read, in the loader's clock
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Fingerprint is a BLAKE2b-256 hex digest of the record content
func (t *Table) Fingerprint() string { return t.fingerprint }

// DateRange returns the first and last record dates; ok is false for an empty table
func (t *Table) DateRange() (first, last time.Time, ok bool) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.records[0].Date, t.records[len(t.records)-1].Date, true
}

// Platforms lists the platforms present, in display order
func (t *Table) Platforms() []domain.Platform {
	seen := make(map[domain.Platform]bool, len(domain.Platforms))
	for _, r := range t.records {
		seen[r.Platform] = true
	}
	out := make([]domain.Platform, 0, len(seen))
	for _, p := range domain.Platforms {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// Info describes the snapshot for the API
func (t *Table) Info() domain.DatasetInfo {
	info := domain.DatasetInfo{
		Source:      t.source,
		Format:      string(t.format),
		Records:     len(t.records),
		Platforms:   t.Platforms(),
		Fingerprint: t.fingerprint,
		LoadedAt:    t.loadedAt,
	}
	if first, last, ok := t.DateRange(); ok {
		info.FirstDate = &first
		info.LastDate = &last
	}
	return info
}
