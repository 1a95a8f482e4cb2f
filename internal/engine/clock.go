package engine

import "time"

// Clock supplies the capture and expiry timestamps stamped on every
// snapshot. Abstracted so tests can pin time and exercise expiry without
// sleeping.
//
// Implemented by SystemClock (production) and testutil.FixedClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
//
// Snapshots carry UTC timestamps so the persisted document is stable
// across host timezones.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
