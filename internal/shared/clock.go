package shared

import "time"

// Clock returns the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

// SystemClock reports wall-clock time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Today returns the calendar day reported by c, falling back to the system clock.
func (c Clock) Today() Date {
	if c == nil {
		return DateOf(SystemClock())
	}
	return DateOf(c())
}

// Now returns the instant reported by c, falling back to the system clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}
