package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order; ISO forms first so that ambiguous
// slash dates only match the US layouts.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var errEmptyCell = errors.New("empty value")

var numberReplacer = strings.NewReplacer("$", "", ",", "", "%", "", " ", "", "\u00a0", "")

func parseNumber(s string) (float64, error) {
	clean := numberReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, errEmptyCell
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// parseCount reads integers exactly and falls back to floats for cells
// such as "12.0" that spreadsheets write for whole numbers
func parseCount(s string) (int64, error) {
	clean := numberReplacer.Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, errEmptyCell
	}
	n, err := strconv.ParseInt(clean, 10, 64)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("out of range: %q", s)
	}

	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return int64(v), nil
}

// parseDate accepts the layouts above and raw spreadsheet serial numbers
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyCell
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
