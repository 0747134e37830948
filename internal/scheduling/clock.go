package scheduling

import "time"

// Clock provides the current time in the fixed reference zone (UTC). All
// past/future checks and the refund window computation go through it so tests
// can pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock {
	return systemClock{}
}
