package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDataUnavailable is matched by every load failure: missing source,
// malformed content or a header that fits no known schema.
var ErrDataUnavailable = errors.New("data unavailable")

// LoadError locates a load failure inside the source.
// Row is 1-based and counts the header; zero means the failure is not tied to a row.
type LoadError struct {
	Source string
	Row    int
	Column string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset %s", e.Source)
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause, such as fs.ErrNotExist
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes every LoadError match ErrDataUnavailable
func (e *LoadError) Is(target error) bool {
	return target == ErrDataUnavailable
}

func loadErr(source, reason string, err error) *LoadError {
	return &LoadError{Source: source, Reason: reason, Err: err}
}

func cellErr(source string, row int, column, reason string) *LoadError {
	return &LoadError{Source: source, Row: row, Column: column, Reason: reason}
}
