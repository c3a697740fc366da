package analytics

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"abpulse/pkg/contracts/domain"
)

// DateLayout is the wire format of filter dates
const DateLayout = "2006-01-02"

// ErrInvalidFilter is wrapped by every filter rejection
var ErrInvalidFilter = errors.New("invalid filter")

// FieldError names the filter field that failed validation
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidFilter
func (e *FieldError) Unwrap() error {
	return ErrInvalidFilter
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseFilter reads platform, start and end from query values.
// Missing values select everything.
func ParseFilter(q url.Values) (domain.Filter, error) {
	var f domain.Filter

	p, err := domain.ParsePlatform(q.Get("platform"))
	if err != nil {
		return f, &FieldError{Field: "platform", Message: "must be one of Facebook, AdWords, All"}
	}
	f.Platform = p

	if f.Start, err = parseDate(q.Get("start")); err != nil {
		return f, &FieldError{Field: "start", Message: "must be a date in YYYY-MM-DD format"}
	}
	if f.End, err = parseDate(q.Get("end")); err != nil {
		return f, &FieldError{Field: "end", Message: "must be a date in YYYY-MM-DD format"}
	}

	return f, ValidateFilter(f)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

// ValidateFilter checks platform membership and range ordering
func ValidateFilter(f domain.Filter) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return &FieldError{Field: fe.Field(), Message: "must be one of Facebook, AdWords, All"}
	case "gtefield":
		return &FieldError{Field: fe.Field(), Message: "must not be before start"}
	default:
		return &FieldError{Field: fe.Field(), Message: fmt.Sprintf("failed %s validation", fe.Tag())}
	}
}

// Normalize fills the default platform and truncates dates to the day
func Normalize(f domain.Filter) domain.Filter {
	if f.Platform == "" {
		f.Platform = domain.PlatformAll
	}
	if !f.Start.IsZero() {
		f.Start = day(f.Start)
	}
	if !f.End.IsZero() {
		f.End = day(f.End)
	}
	return f
}

// Match reports whether r falls inside f. The date range is inclusive.
func Match(r domain.CampaignRecord, f domain.Filter) bool {
	if f.Platform.IsConcrete() && r.Platform != f.Platform {
		return false
	}
	d := day(r.Date)
	if !f.Start.IsZero() && d.Before(day(f.Start)) {
		return false
	}
	if !f.End.IsZero() && d.After(day(f.End)) {
		return false
	}
	return true
}

// Apply returns the records matching f in their original order
func Apply(records []domain.CampaignRecord, f domain.Filter) []domain.CampaignRecord {
	out := make([]domain.CampaignRecord, 0, len(records))
	for _, r := range records {
		if Match(r, f) {
			out = append(out, r)
		}
	}
	return out
}

// Query encodes f back into query values, omitting defaults
func Query(f domain.Filter) url.Values {
	q := url.Values{}
	if f.Platform.IsConcrete() {
		q.Set("platform", string(f.Platform))
	}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.Format(DateLayout))
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.Format(DateLayout))
	}
	return q
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
