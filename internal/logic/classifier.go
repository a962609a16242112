package logic

import "time"

// Classifier runs the debounce-and-latch state machine for every configured
// band against the shared filtered-voltage snapshot, once per polling tick.
type Classifier struct {
	bands         []Band
	states        []bandState
	counts        map[OutputID]OutputCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewClassifier creates a classifier for the given bands. Band configuration
// is assumed validated (see config.Validate); the classifier itself treats it
// as immutable. The startTime is used for calculating uptime in heartbeats.
func NewClassifier(bands []Band, startTime time.Time) *Classifier {
	return &Classifier{
		bands:         bands,
		states:        make([]bandState, len(bands)),
		counts:        make(map[OutputID]OutputCounts),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the current filtered voltage and returns any output
// transitions to drive. Bands are evaluated in configuration order against
// the same voltage value; outputs are edge-triggered, so each continuous
// in-band occupancy produces at most one latch and one release.
func (c *Classifier) Process(voltage float64, now time.Time) []Event {
	var events []Event
	for i := range c.bands {
		if ev := c.processBand(&c.bands[i], &c.states[i], voltage, now); ev != nil {
			events = append(events, *ev)
		}
	}

	for _, e := range events {
		cnt := c.counts[e.Output]
		if e.Active {
			cnt.Latches++
		} else {
			cnt.Releases++
		}
		c.counts[e.Output] = cnt
	}

	return events
}

// processBand advances a single band's state machine.
// Returns the transition event if one occurred, nil otherwise.
func (c *Classifier) processBand(b *Band, s *bandState, voltage float64, now time.Time) *Event {
	// A freshly latched band is frozen until its holdoff expires. This
	// replaces the old in-loop sleep after a latch: same minimum spacing
	// before the band re-evaluates, without stalling the other bands.
	if now.Before(s.holdoffUntil) {
		return nil
	}

	inBand := voltage >= b.Low && voltage <= b.High

	if !inBand {
		if !s.active {
			// Idle, or Pending that never reached a hold threshold.
			*s = bandState{}
			return nil
		}
		// Latched -> Idle: release the output that was driven. Only the
		// fired output is ever active, so this leaves every output of the
		// band at its inactive level.
		fired := s.fired
		name := b.Name
		*s = bandState{}
		return &Event{Timestamp: now, Band: name, Output: fired, Active: false}
	}

	if s.entered.IsZero() {
		// Idle -> Pending: record entry, elapsed time counts from here.
		s.entered = now
		return nil
	}

	if s.active {
		// Latched: nothing more until the voltage exits the band.
		return nil
	}

	// Pending: latch on the first action whose hold has been reached,
	// checked in ascending hold order. The checks are mutually exclusive,
	// so when a tick first observes an elapsed time past the long hold,
	// the short action still wins and the long one never fires for this
	// occupancy. Dual-threshold buttons inherit this quirk deliberately.
	elapsed := now.Sub(s.entered)
	for _, a := range b.Actions {
		if elapsed >= a.Hold {
			s.active = true
			s.fired = a.Output
			if b.Holdoff > 0 {
				s.holdoffUntil = now.Add(b.Holdoff)
			}
			return &Event{Timestamp: now, Band: b.Name, Output: a.Output, Active: true}
		}
	}

	return nil
}

// Active returns the name of the band currently latched, or "" if none.
// Bands are voltage-disjoint by configuration, so at most one can be latched
// by a single voltage value; with holdoff a stale latch may linger briefly,
// in which case the first one in configuration order is reported.
func (c *Classifier) Active() string {
	for i := range c.states {
		if c.states[i].active {
			return c.bands[i].Name
		}
	}
	return ""
}

// CountsSnapshot returns a copy of the per-output event counters.
func (c *Classifier) CountsSnapshot() map[OutputID]OutputCounts {
	snap := make(map[OutputID]OutputCounts, len(c.counts))
	for id, cnt := range c.counts {
		snap[id] = cnt
	}
	return snap
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Classifier) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.CountsSnapshot(),
	}
}
