package clock

import "time"

// Clock abstracts the two time operations the module needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NowMillis returns c.Now() as Unix epoch milliseconds.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
