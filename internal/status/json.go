package status

import (
	"encoding/json"
	"sort"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string                `json:"event,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	Voltage       float64               `json:"voltage"`
	ActiveBand    string                `json:"active_band"`
	Outputs       []OutputJSON          `json:"outputs"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     string                `json:"start_time"`
	Timestamp     string                `json:"timestamp"`
	MQTT          MQTTStatus            `json:"mqtt"`
	Counts        map[string]CountsJSON `json:"event_counts"`
	Config        ConfigJSON            `json:"config"`
}

// OutputJSON is the JSON representation of one output's level.
type OutputJSON struct {
	ID    string `json:"id"`
	State string `json:"state"` // "ACTIVE" or "INACTIVE"
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of one output's event counts.
type CountsJSON struct {
	Latches  int `json:"latches"`
	Releases int `json:"releases"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	FilterWindow int    `json:"filter_window"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
	SerialPort   string `json:"serial_port"`
}

func buildInner(snap Snapshot) StatusInner {
	outputs := make([]OutputJSON, 0, len(snap.Outputs))
	for id, active := range snap.Outputs {
		state := "INACTIVE"
		if active {
			state = "ACTIVE"
		}
		outputs = append(outputs, OutputJSON{ID: id, State: state})
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })

	counts := make(map[string]CountsJSON, len(snap.Counts))
	for id, c := range snap.Counts {
		counts[string(id)] = CountsJSON{Latches: c.Latches, Releases: c.Releases}
	}

	band := snap.ActiveBand
	if band == "" {
		band = "NONE"
	}

	return StatusInner{
		Voltage:       snap.Voltage,
		ActiveBand:    band,
		Outputs:       outputs,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        counts,
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			FilterWindow: snap.Config.FilterWindow,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPPort:     snap.Config.HTTPPort,
			SerialPort:   snap.Config.SerialPort,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
