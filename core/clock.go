package core

import "time"

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
