package quant

import "time"

// TimeStamp represents Unix microseconds — the manager's clock unit for
// book-receive and reaction-latency accounting.
type TimeStamp int64

// Now captures the current instant as a TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMicro())
}

// Since returns the elapsed duration from ts to now.
func (ts TimeStamp) Since() time.Duration {
	return time.Duration(Now()-ts) * time.Microsecond
}

// Sub returns the duration between two timestamps (ts - other).
func (ts TimeStamp) Sub(other TimeStamp) time.Duration {
	return time.Duration(ts-other) * time.Microsecond
}

// FromMillis converts a venue millisecond timestamp to TimeStamp.
func FromMillis(ms int64) TimeStamp {
	return TimeStamp(ms * 1000)
}

// Millis converts back to Unix milliseconds for outbound signed requests.
func (ts TimeStamp) Millis() int64 {
	return int64(ts) / 1000
}
