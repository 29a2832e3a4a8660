package aggregate

import "time"

const nanosPerSecond = uint64(time.Second)

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func nanosToSeconds(ns uint64) uint64 {
	return ns / nanosPerSecond
}

func secondsToTime(sec uint64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
