// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wallclock

import "time"

type (
	// WallClock is the subset of package time that the waiting primitives
	// depend on.
	WallClock interface {
		Now() time.Time
		NewTimer(d time.Duration) Timer
	}

	// Timer abstracts the functionality of time.Timer.
	Timer interface {
		C() <-chan time.Time
		Stop() bool
	}

	system struct{}

	timer struct{ t *time.Timer }
)

// Now indirects time.Now.
func (system) Now() time.Time {
	return time.Now()
}

// NewTimer indirects time.NewTimer.
func (system) NewTimer(d time.Duration) Timer {
	return timer{time.NewTimer(d)}
}

func (t timer) C() <-chan time.Time {
	return t.t.C
}

func (t timer) Stop() bool {
	return t.t.Stop()
}

// Instance is the clock used for deadlines and timestamps. Tests may replace
// it to control apparent time.
var Instance WallClock = system{}

// Deadline returns the instant at which a wait of the given length started
// now would expire, along with whether the wait blocks at all.
func Deadline(timeout time.Duration) (time.Time, bool) {
	if timeout <= 0 {
		return time.Time{}, false
	}
	return Instance.Now().Add(timeout), true
}
