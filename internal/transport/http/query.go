package http

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"abpulse/internal/analytics"
	apierrors "abpulse/internal/errors"
	"abpulse/pkg/contracts/domain"
)

// DefaultRecordsLimit applies when /api/records is called without limit
const DefaultRecordsLimit = 100

// parseFilter reads the platform, start and end query parameters
func parseFilter(r *http.Request) (domain.Filter, error) {
	return analytics.ParseFilter(r.URL.Query())
}

// parseBucket reads the bucket query parameter; empty means daily
func parseBucket(r *http.Request) (domain.Bucket, error) {
	return analytics.ParseBucket(r.URL.Query().Get("bucket"))
}

// parseLimit reads a positive limit; 0 means every record
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return DefaultRecordsLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierrors.ErrValidation("limit", "must be a non-negative integer")
	}
	return n, nil
}

// etag is "<fingerprint>-<query hash>". The hash covers the normalized
// filter plus any extra parameters, so equivalent queries share a tag.
func etag(fingerprint string, f domain.Filter, extra ...string) string {
	q := analytics.Query(analytics.Normalize(f)).Encode()
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(q))
	for _, e := range extra {
		h.Write([]byte{0})
		h.Write([]byte(e))
	}
	return `"` + fingerprint + "-" + hex.EncodeToString(h.Sum(nil)) + `"`
}

// notModified sets the ETag and reports whether the client copy is current
func notModified(w http.ResponseWriter, r *http.Request, tag string) bool {
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(candidate), "W/"))
		if candidate == tag || candidate == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}
