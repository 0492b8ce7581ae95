package mediaitem

import "time"

// durationMillis converts a duration_ms column value to a time.Duration.
func durationMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
