// Package clock abstracts the current time so date-dependent logic can be tested.
package clock

import "time"

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

// Now returns time.Now
func (System) Now() time.Time {
	return time.Now()
}

// Fixed always reports the same instant. Used by tests and replay tooling.
type Fixed struct {
	T time.Time
}

// Now returns the fixed instant
func (f Fixed) Now() time.Time {
	return f.T
}
