// Package status provides a thread-safe status tracker for the wheel-remote
// daemon. It is read by HTTP handlers while the polling loop writes it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/wheel-remote/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	FilterWindow int
	HeartbeatMs  int64
	Broker       string
	HTTPPort     string
	SerialPort   string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Voltage       float64
	ActiveBand    string
	Outputs       map[string]bool // output id -> logical level
	Counts        map[logic.OutputID]logic.OutputCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Outputs:   make(map[string]bool),
		},
	}
}

// Update sets the filtered voltage, the latched band and the event counts.
// Called from the polling loop on every tick.
func (t *Tracker) Update(voltage float64, activeBand string, counts map[logic.OutputID]logic.OutputCounts) {
	t.mu.Lock()
	t.snap.Voltage = voltage
	t.snap.ActiveBand = activeBand
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetOutput records an output's logical level.
func (t *Tracker) SetOutput(id logic.OutputID, active bool) {
	t.mu.Lock()
	t.snap.Outputs[string(id)] = active
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Outputs = make(map[string]bool, len(t.snap.Outputs))
	for id, level := range t.snap.Outputs {
		s.Outputs[id] = level
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
