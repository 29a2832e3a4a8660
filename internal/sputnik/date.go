package sputnik

import "time"

const dateLayout = "2006-01-02"

// FormatDate renders a nanosecond block timestamp as a UTC calendar date.
func FormatDate(timestampNanos uint64) string {
	return time.Unix(0, int64(timestampNanos)).UTC().Format(dateLayout)
}
