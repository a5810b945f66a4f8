// Package clock provides an injectable wall-clock so components that
// need "now" (salt rotation, event timestamps, publisher uptime) can
// be driven by a fixed or stepped value in tests instead of real time.
package clock

import "time"

// Provider returns the current time. System is the production value;
// tests substitute a closure over a fixed or mutable time.Time.
type Provider func() time.Time

// System is the real wall clock.
func System() time.Time {
	return time.Now()
}
