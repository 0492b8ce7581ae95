package model

import "time"

// DurationToMillis converts a time.Duration to the integer millisecond
// form stored in duration_ms columns.
func DurationToMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

// MillisToDuration converts a duration_ms column value back to a
// time.Duration.
func MillisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
