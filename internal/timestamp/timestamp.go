// Package timestamp parses heterogeneous timestamp values into comparable UTC times.
package timestamp

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Min is the sentinel for missing or unparseable timestamps.
// It is the zero time in UTC and sorts last in newest-first order.
var Min = time.Time{}.UTC()

// Parse converts raw into a UTC time. It never fails: nil, empty and
// unparseable values yield Min.
//
// Accepted inputs: string, *string, time.Time, *time.Time, int64 and
// float64 (unix seconds). Strings ending in a literal "Z" are rewritten to
// "+00:00" before parsing; zone-less strings are interpreted as UTC.
func Parse(raw any) time.Time {
	switch v := raw.(type) {
	case nil:
		return Min
	case time.Time:
		return fromTime(v)
	case *time.Time:
		if v == nil {
			return Min
		}
		return fromTime(*v)
	case string:
		return parseString(v)
	case *string:
		if v == nil {
			return Min
		}
		return parseString(*v)
	case int64:
		return time.Unix(v, 0).UTC()
	case int:
		return time.Unix(int64(v), 0).UTC()
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC()
	default:
		return Min
	}
}

// IsMin reports whether t is the missing-timestamp sentinel.
func IsMin(t time.Time) bool {
	return t.IsZero()
}

// Format renders t as RFC3339Nano, or "" for the sentinel.
func Format(t time.Time) string {
	if IsMin(t) {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTime(t time.Time) time.Time {
	if t.IsZero() {
		return Min
	}
	return t.UTC()
}

func parseString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Min
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Min
	}
	return t.UTC()
}
