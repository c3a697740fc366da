package services

import (
	"abpulse/internal/analytics"
	"abpulse/internal/dataset"
)

// Dashboard service errors
var (
	// ErrDataUnavailable means no dataset snapshot can be served
	ErrDataUnavailable = dataset.ErrDataUnavailable

	// ErrInvalidFilter is wrapped by filter and bucket validation failures
	ErrInvalidFilter = analytics.ErrInvalidFilter
)
