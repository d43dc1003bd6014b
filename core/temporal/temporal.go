// Package temporal derives track-local calendar dates, reporting years and
// display times from epoch-millisecond instants. Every function is pure:
// all time inputs are explicit parameters, there are no clock reads, and
// total: derivations degrade through fallback tiers instead of failing.
package temporal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "3:04 PM"
	// legacyDateLayout matches the display strings older app versions
	// persisted alongside the timestamp.
	legacyDateLayout = "1/2/2006"
)

// location resolves an IANA zone name, falling back to UTC when the name is
// empty or unknown.
func location(timeZone string) *time.Location {
	if timeZone != "" {
		if loc, err := time.LoadLocation(timeZone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// TrackDate returns the calendar date of epochMs as observed in timeZone,
// formatted YYYY-MM-DD. The derivation never fails: an unknown or malformed
// zone falls back to UTC, and any unexpected failure beyond that falls back
// to the device-local calendar date.
func TrackDate(epochMs int64, timeZone string) (date string) {
	defer func() {
		if recover() != nil {
			date = time.UnixMilli(epochMs).Local().Format(dateLayout)
		}
	}()
	return time.UnixMilli(epochMs).In(location(timeZone)).Format(dateLayout)
}

// Year returns the reporting-year bucket. An explicit track-local date
// always wins over the timestamp: a reading logged late at night may
// straddle a UTC day boundary relative to its physical location.
func Year(trackDate string, epochMs *int64) *int {
	if len(trackDate) >= 4 {
		if y, err := strconv.Atoi(trackDate[:4]); err == nil {
			return &y
		}
	}
	if epochMs != nil {
		y := time.UnixMilli(*epochMs).UTC().Year()
		return &y
	}
	return nil
}

// Clock returns a 12-hour display time such as "11:13 PM" for epochMs as
// observed in timeZone. Same fallback tiers as TrackDate; the last resort
// computes the clock face from raw minute arithmetic so a valid string is
// always returned.
func Clock(epochMs int64, timeZone string) (clock string) {
	defer func() {
		if recover() != nil {
			clock = rawClock(epochMs)
		}
	}()
	return time.UnixMilli(epochMs).In(location(timeZone)).Format(clockLayout)
}

// LegacyDate returns the backward-compatible display date string kept on
// readings for older app versions.
func LegacyDate(epochMs int64, timeZone string) (date string) {
	defer func() {
		if recover() != nil {
			date = time.UnixMilli(epochMs).Local().Format(legacyDateLayout)
		}
	}()
	return time.UnixMilli(epochMs).In(location(timeZone)).Format(legacyDateLayout)
}

// rawClock derives a 12-hour clock string from epochMs without any timezone
// machinery. Minutes since midnight UTC, folded onto the clock face.
func rawClock(epochMs int64) string {
	totalMinutes := (epochMs / 60000) % 1440
	if totalMinutes < 0 {
		totalMinutes += 1440
	}
	hour := totalMinutes / 60
	minute := totalMinutes % 60

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period)
}

// SafeNumber coerces a loosely-typed value to a float64. Native numbers and
// numeric strings pass through; nil, empty or non-numeric strings, NaN and
// infinities all become nil rather than propagating garbage. The coercion
// is idempotent: feeding a previous result back in returns the same value.
func SafeNumber(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case *float64:
		if n == nil {
			return nil
		}
		return finite(*n)
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return finite(float64(n))
	case int32:
		return finite(float64(n))
	case int64:
		return finite(float64(n))
	case uint:
		return finite(float64(n))
	case uint64:
		return finite(float64(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return finite(f)
	case fmt.Stringer:
		return SafeNumber(n.String())
	default:
		return nil
	}
}

// SafeInt64 is SafeNumber truncated to an integer, for epoch-millisecond
// and year columns.
func SafeInt64(v any) *int64 {
	f := SafeNumber(v)
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
