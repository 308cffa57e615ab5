package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/ysmood/gson"
)

// epochToRFC3339 converts an epoch timestamp to RFC 3339 UTC. Values above
// 10^11 are taken as milliseconds, anything smaller as seconds (10^11
// seconds is the year 5138; millisecond timestamps crossed it in 1973).
// Accepts JSON numbers and numeric strings; returns "" otherwise.
func epochToRFC3339(j gson.JSON) string {
	var n int64
	switch v := j.Val().(type) {
	case float64:
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return ""
		}
		n = parsed
	default:
		return ""
	}
	if n <= 0 {
		return ""
	}

	var t time.Time
	if n > 100_000_000_000 {
		t = time.UnixMilli(n)
	} else {
		t = time.Unix(n, 0)
	}
	return t.UTC().Format(time.RFC3339)
}

// NormalizeDate parses a formatted date into RFC 3339 UTC. Free-text
// relative times ("il y a 3 jours") are not dates; they pass through
// unchanged so the record still carries what the site showed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}
