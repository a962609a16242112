// Package logic contains pure business logic for voltage band classification.
// This package has NO external dependencies (no ADC, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// OutputID identifies a digital output by its configured name.
type OutputID string

// Action maps a minimum continuous in-band hold duration to an output.
type Action struct {
	// Hold is the minimum continuous time the filtered voltage must stay
	// inside the band before the output latches.
	Hold time.Duration
	// Output is driven active when Hold is reached.
	Output OutputID
}

// Band is a contiguous voltage interval mapped to one physical button.
// Immutable after construction.
type Band struct {
	Name string
	// Low and High are the inclusive voltage bounds.
	Low  float64
	High float64
	// Actions, in ascending Hold order. One entry for a plain button; two for
	// a button that distinguishes a short hold from a long hold. On each tick
	// the first satisfied action wins and the rest are not considered.
	Actions []Action
	// Holdoff suspends re-evaluation of this band for the given duration
	// after a latch. Zero disables.
	Holdoff time.Duration
}

// Event represents an output transition to be driven and published.
type Event struct {
	Timestamp time.Time
	Band      string
	Output    OutputID
	// Active is true for a latch (drive output active), false for a release.
	Active bool
}

// bandState tracks the per-band debounce state machine.
// Idle: entered unset, active false. Pending: entered set, active false.
// Latched: active true.
type bandState struct {
	// entered is the time of the first tick inside the band. Zero when the
	// voltage is not (or just started being) inside the band.
	entered time.Time
	// active means one of the band's outputs has been latched for the
	// current continuous in-band period.
	active bool
	// fired is the output latched this occupancy; valid while active.
	fired OutputID
	// holdoffUntil suspends evaluation of this band until the given time.
	holdoffUntil time.Time
}

// OutputCounts tracks latch/release totals for one output since startup.
type OutputCounts struct {
	Latches  int
	Releases int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    map[OutputID]OutputCounts
}
