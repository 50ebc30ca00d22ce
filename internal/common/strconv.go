package common

import (
	"net/http"
	"strconv"
	"time"
)

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// ParseID converts a chi URL parameter into an int64 primary key.
func ParseID(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

// DateParam parses a YYYY-MM-DD query or path parameter as a UTC date.
func DateParam(r *http.Request, name string) (time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, true, err
	}
	return parsed, true, nil
}
